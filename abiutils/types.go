package abiutils

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

type MethodId [4]byte

func (id MethodId) String() string {
	return hex.EncodeToString(id[:])
}

// ParseMethodId parses a hex encoded 4-bytes selector, the 0x prefix is optional.
func ParseMethodId(text string) (MethodId, error) {
	id := MethodId{}
	val, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(text), "0x"))
	if err != nil {
		return id, fmt.Errorf("invalid method id '%s': %w", text, err)
	}
	if len(val) != len(id) {
		return id, fmt.Errorf("invalid method id length: %d", len(val))
	}
	copy(id[:], val)
	return id, nil
}

// Interface is a named set of contract methods, events and errors.
type Interface struct {
	abi.ABI
	Name string
}

func NewInterface(name string, entries []ABIEntry) (*Interface, error) {
	methods := make(map[string]abi.Method)
	events := make(map[string]abi.Event)
	errors := make(map[string]abi.Error)
	for _, entry := range entries {
		switch entry.Type {
		case "function":
			isConst := entry.StateMutability == "view" || entry.StateMutability == "pure"
			isPayable := entry.StateMutability == "payable"
			methods[entry.Name] = abi.NewMethod(entry.Name, entry.Name, abi.Function, entry.StateMutability, isConst, isPayable, entry.Inputs, entry.Outputs)
		case "event":
			events[entry.Name] = abi.NewEvent(entry.Name, entry.Name, entry.Anonymous, entry.Inputs)
		case "error":
			errors[entry.Name] = abi.NewError(entry.Name, entry.Inputs)
		default:
			return nil, fmt.Errorf("invalid abi entry type: %v", entry.Type)
		}
	}
	return &Interface{
		ABI: abi.ABI{
			Methods: methods,
			Events:  events,
			Errors:  errors,
		},
		Name: name,
	}, nil
}

// MethodID returns the 4-bytes selector of the named method.
func (i *Interface) MethodID(name string) (MethodId, error) {
	method, ok := i.Methods[name]
	if !ok {
		return MethodId{}, fmt.Errorf("method '%s' not found in %s", name, i.Name)
	}
	id := MethodId{}
	copy(id[:], method.ID)
	return id, nil
}

// UnpackOutput decodes the return data of the named method into v.
func (i *Interface) UnpackOutput(v interface{}, name string, data []byte) error {
	if _, ok := i.Methods[name]; !ok {
		return fmt.Errorf("method '%s' not found in %s", name, i.Name)
	}
	return i.UnpackIntoInterface(v, name, data)
}

type abiEntryMarshaling struct {
	Type            string               `json:"type"`
	Name            string               `json:"name"`
	Inputs          []argumentMarshaling `json:"inputs,omitempty"`
	Outputs         []argumentMarshaling `json:"outputs,omitempty"`
	StateMutability string               `json:"stateMutability,omitempty"`
	Anonymous       bool                 `json:"anonymous,omitempty"`
}

type argumentMarshaling struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	InternalType string `json:"internalType,omitempty"`
	Indexed      bool   `json:"indexed,omitempty"`
}

type ABIEntry struct {
	Type    string
	Name    string
	Inputs  []abi.Argument
	Outputs []abi.Argument

	// Status indicator which can be: "pure", "view",
	// "nonpayable" or "payable".
	StateMutability string

	// Event relevant indicator represents the event is
	// declared as anonymous.
	Anonymous bool
}

func unmarshalArguments(list []argumentMarshaling) (abi.Arguments, error) {
	args := make(abi.Arguments, 0, len(list))
	for _, item := range list {
		argType, err := newType(item.Type, item.InternalType)
		if err != nil {
			return nil, err
		}
		args = append(args, abi.Argument{Name: item.Name, Type: argType, Indexed: item.Indexed})
	}
	return args, nil
}

func (e *ABIEntry) UnmarshalJSON(data []byte) error {
	var raw abiEntryMarshaling
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	inputs, err := unmarshalArguments(raw.Inputs)
	if err != nil {
		return err
	}
	outputs, err := unmarshalArguments(raw.Outputs)
	if err != nil {
		return err
	}
	*e = ABIEntry{
		Type:            raw.Type,
		Name:            raw.Name,
		Inputs:          inputs,
		Outputs:         outputs,
		StateMutability: raw.StateMutability,
		Anonymous:       raw.Anonymous,
	}
	return nil
}
