package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"campuschain/crypto"
)

var rpcEndpoint = defaultRPCEndpoint()
var rpcAuthToken = os.Getenv("CAMPUS_RPC_TOKEN")

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv("RPC_URL")); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func main() {
	args := os.Args[1:]
	var err error
	args, err = applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if len(args) < 1 {
		printUsage()
		return
	}

	command := args[0]
	rest := args[1:]
	switch command {
	case "generate-key":
		generateKey(rest)
	case "show-address":
		requireArgs(rest, 1, "show-address <keyfile>")
		showAddress(rest[0])
	case "create-teacher":
		requireArgs(rest, 2, "create-teacher <admin> <address>")
		call("campus_createTeacher", map[string]string{"caller": rest[0], "address": rest[1]}, true)
	case "create-student":
		requireArgs(rest, 2, "create-student <admin> <address>")
		call("campus_createStudent", map[string]string{"caller": rest[0], "address": rest[1]}, true)
	case "role-token":
		requireArgs(rest, 2, "role-token <address> <role>")
		call("campus_getRoleToken", map[string]string{"address": rest[0], "role": rest[1]}, false)
	case "register-course":
		requireArgs(rest, 2, "register-course <teacher> <creditWeight>")
		call("campus_registerCourse", map[string]interface{}{"caller": rest[0], "creditWeight": mustUint(rest[1])}, false)
	case "start-term":
		requireArgs(rest, 1, "start-term <admin>")
		call("campus_startTerm", map[string]string{"caller": rest[0]}, true)
	case "advance":
		requireArgs(rest, 1, "advance <admin>")
		call("campus_advance", map[string]string{"caller": rest[0]}, true)
	case "phase":
		callNoParams("campus_getPhase")
	case "add-course":
		requireArgs(rest, 3, "add-course <teacher> <courseId> <seatLimit> [price]")
		params := map[string]interface{}{"caller": rest[0], "courseId": mustUint(rest[1]), "seatLimit": mustUint(rest[2])}
		if len(rest) > 3 {
			params["price"] = rest[3]
		}
		call("campus_addCourse", params, false)
	case "apply":
		requireArgs(rest, 4, "apply <student> <courseId> <slotIndex> <studentToken>")
		call("campus_apply", map[string]interface{}{
			"caller": rest[0], "courseId": mustUint(rest[1]),
			"slotIndex": mustUint(rest[2]), "studentToken": mustUint(rest[3]),
		}, false)
	case "claim":
		requireArgs(rest, 3, "claim <student> <courseId> <slotIndex>")
		call("campus_claim", map[string]interface{}{
			"caller": rest[0], "courseId": mustUint(rest[1]), "slotIndex": mustUint(rest[2]),
		}, false)
	case "mark":
		requireArgs(rest, 3, "mark <teacher> <seatId> <grade>")
		call("campus_markStudent", map[string]interface{}{
			"caller": rest[0], "seatId": mustUint(rest[1]), "grade": mustUint(rest[2]),
		}, false)
	case "transfer-seat":
		requireArgs(rest, 3, "transfer-seat <owner> <to> <seatId>")
		call("campus_transferSeat", map[string]interface{}{
			"caller": rest[0], "to": rest[1], "seatId": mustUint(rest[2]),
		}, false)
	case "list-seat":
		requireArgs(rest, 4, "list-seat <owner> <courseId> <slotIndex> <price>")
		call("campus_listSeat", map[string]interface{}{
			"caller": rest[0], "courseId": mustUint(rest[1]),
			"slotIndex": mustUint(rest[2]), "price": rest[3],
		}, false)
	case "cancel-listing":
		requireArgs(rest, 3, "cancel-listing <seller> <courseId> <slotIndex>")
		call("campus_cancelListing", map[string]interface{}{
			"caller": rest[0], "courseId": mustUint(rest[1]), "slotIndex": mustUint(rest[2]),
		}, false)
	case "buy-seat":
		requireArgs(rest, 3, "buy-seat <buyer> <courseId> <slotIndex>")
		call("campus_buySeat", map[string]interface{}{
			"caller": rest[0], "courseId": mustUint(rest[1]), "slotIndex": mustUint(rest[2]),
		}, false)
	case "mint-degree":
		requireArgs(rest, 2, "mint-degree <student> <studentToken>")
		call("campus_mintDegree", map[string]interface{}{"caller": rest[0], "studentToken": mustUint(rest[1])}, false)
	case "attach-hash":
		requireArgs(rest, 3, "attach-hash <admin> <studentToken> <hash>")
		call("campus_attachDegreeHash", map[string]interface{}{
			"caller": rest[0], "studentToken": mustUint(rest[1]), "hash": rest[2],
		}, true)
	case "degree":
		requireArgs(rest, 1, "degree <studentToken>")
		call("campus_getDegree", map[string]interface{}{"studentToken": mustUint(rest[0])}, false)
	case "credit":
		requireArgs(rest, 1, "credit <studentToken>")
		call("campus_getCredit", map[string]interface{}{"studentToken": mustUint(rest[0])}, false)
	case "balance":
		requireArgs(rest, 1, "balance <address>")
		call("campus_getBalance", map[string]string{"address": rest[0]}, false)
	case "mint-funds":
		requireArgs(rest, 3, "mint-funds <admin> <to> <amount>")
		call("campus_mintFunds", map[string]string{"caller": rest[0], "to": rest[1], "amount": rest[2]}, true)
	case "transfer-funds":
		requireArgs(rest, 3, "transfer-funds <from> <to> <amount>")
		call("campus_transferFunds", map[string]string{"caller": rest[0], "to": rest[1], "amount": rest[2]}, false)
	case "course":
		requireArgs(rest, 2, "course <termId> <courseId>")
		call("campus_getCourse", map[string]interface{}{"termId": mustUint(rest[0]), "courseId": mustUint(rest[1])}, false)
	case "seat":
		requireArgs(rest, 2, "seat <termId> <seatId>")
		call("campus_getSeat", map[string]interface{}{"termId": mustUint(rest[0]), "seatId": mustUint(rest[1])}, false)
	default:
		fmt.Printf("Unknown command %q\n", command)
		printUsage()
		os.Exit(1)
	}
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--rpc" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for --rpc")
			}
			rpcEndpoint = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--rpc=") {
			rpcEndpoint = strings.TrimPrefix(arg, "--rpc=")
			continue
		}
		out = append(out, arg)
	}
	return out, nil
}

func requireArgs(args []string, n int, usage string) {
	if len(args) < n {
		fmt.Printf("Usage: campus-cli %s\n", usage)
		os.Exit(1)
	}
}

func mustUint(value string) uint64 {
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		fmt.Printf("Error: invalid number %q\n", value)
		os.Exit(1)
	}
	return parsed
}

func generateKey(args []string) {
	path := "campus.key"
	if len(args) > 0 {
		path = args[0]
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Printf("Error generating key: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(key.Bytes())), 0o600); err != nil {
		fmt.Printf("Error saving key: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Key saved to %s\n", path)
	fmt.Printf("Address: %s\n", key.PubKey().Address().String())
}

func showAddress(path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Error reading key file: %v\n", err)
		os.Exit(1)
	}
	decoded, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		fmt.Printf("Error decoding key file: %v\n", err)
		os.Exit(1)
	}
	key, err := crypto.PrivateKeyFromBytes(decoded)
	if err != nil {
		fmt.Printf("Error loading key: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Address: %s\n", key.PubKey().Address().String())
}

type rpcPayload struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type rpcReply struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int         `json:"code"`
		Message string      `json:"message"`
		Data    interface{} `json:"data"`
	} `json:"error"`
}

func call(method string, params interface{}, requireAuth bool) {
	doCall(method, []interface{}{params}, requireAuth)
}

func callNoParams(method string) {
	doCall(method, []interface{}{}, false)
}

func doCall(method string, params []interface{}, requireAuth bool) {
	payload := rpcPayload{JSONRPC: "2.0", Method: method, Params: params, ID: 1}
	body, err := json.Marshal(payload)
	if err != nil {
		fmt.Printf("Error encoding request: %v\n", err)
		os.Exit(1)
	}
	req, err := http.NewRequest(http.MethodPost, rpcEndpoint, bytes.NewReader(body))
	if err != nil {
		fmt.Printf("Error building request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	if requireAuth {
		if strings.TrimSpace(rpcAuthToken) == "" {
			fmt.Println("Error: CAMPUS_RPC_TOKEN must be set for administrative commands.")
			os.Exit(1)
		}
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(rpcAuthToken))
	}
	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error calling RPC: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("Error reading response: %v\n", err)
		os.Exit(1)
	}
	var reply rpcReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		fmt.Printf("Error decoding response: %v\n", err)
		os.Exit(1)
	}
	if reply.Error != nil {
		fmt.Printf("RPC error %d: %s\n", reply.Error.Code, reply.Error.Message)
		if reply.Error.Data != nil {
			fmt.Printf("  %v\n", reply.Error.Data)
		}
		os.Exit(1)
	}
	pretty := &bytes.Buffer{}
	if err := json.Indent(pretty, reply.Result, "", "  "); err != nil {
		fmt.Println(string(reply.Result))
		return
	}
	fmt.Println(pretty.String())
}

func printUsage() {
	fmt.Println(`Usage: campus-cli [--rpc URL] <command> [args]

Keys:
  generate-key [file]
  show-address <keyfile>

Identity (admin):
  create-teacher <admin> <address>
  create-student <admin> <address>
  role-token <address> <role>

Catalog:
  register-course <teacher> <creditWeight>
  course <termId> <courseId>

Terms (admin):
  start-term <admin>
  advance <admin>
  phase

Enrollment:
  add-course <teacher> <courseId> <seatLimit> [price]
  apply <student> <courseId> <slotIndex> <studentToken>
  claim <student> <courseId> <slotIndex>
  mark <teacher> <seatId> <grade>
  transfer-seat <owner> <to> <seatId>
  seat <termId> <seatId>

Market:
  list-seat <owner> <courseId> <slotIndex> <price>
  cancel-listing <seller> <courseId> <slotIndex>
  buy-seat <buyer> <courseId> <slotIndex>

Degrees:
  mint-degree <student> <studentToken>
  attach-hash <admin> <studentToken> <hash>
  degree <studentToken>
  credit <studentToken>

Funds:
  balance <address>
  mint-funds <admin> <to> <amount>
  transfer-funds <from> <to> <amount>`)
}
