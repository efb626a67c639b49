package abiutils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// matches `function name(inputs) modifiers returns (outputs)`, the `function`
// keyword, modifiers and returns clause are optional
var methodSigRegex = regexp.MustCompile(`^\s*(?:function\s+)?(\w+)\s*\(([^()]*)\)((?:\s+(?:external|public|view|pure|payable|nonpayable))*)\s*(?:returns\s*\(([^()]*)\))?\s*$`)

// argument tokens that carry no type information
var ignoredArgTokens = map[string]bool{
	"indexed":  true,
	"memory":   true,
	"calldata": true,
	"storage":  true,
}

// matches the bit size of intN/uintN and the length of bytesN
var sizedTypeRegex = regexp.MustCompile(`\b(u?int|bytes)(\d+)`)

// newType wraps abi.NewType, which does not check the size of sized types.
func newType(typeStr string, internalType string) (abi.Type, error) {
	for _, match := range sizedTypeRegex.FindAllStringSubmatch(typeStr, -1) {
		size, err := strconv.Atoi(match[2])
		if err != nil {
			return abi.Type{}, fmt.Errorf("invalid argument type '%s': %w", typeStr, err)
		}
		if match[1] == "bytes" {
			if size < 1 || size > 32 {
				return abi.Type{}, fmt.Errorf("invalid argument type '%s': bytes length %d out of range", typeStr, size)
			}
		} else if size < 8 || size > 256 || size%8 != 0 {
			return abi.Type{}, fmt.Errorf("invalid argument type '%s': invalid bit size %d", typeStr, size)
		}
	}
	argType, err := abi.NewType(typeStr, internalType, nil)
	if err != nil {
		return abi.Type{}, fmt.Errorf("invalid argument type '%s': %w", typeStr, err)
	}
	return argType, nil
}

func parseArguments(str string) (abi.Arguments, error) {
	args := make(abi.Arguments, 0)
	if len(strings.TrimSpace(str)) == 0 {
		return args, nil
	}
	for _, arg := range strings.Split(str, ",") {
		tokens := make([]string, 0, 2)
		for _, tok := range strings.Fields(arg) {
			if !ignoredArgTokens[tok] {
				tokens = append(tokens, tok)
			}
		}
		if len(tokens) == 0 || len(tokens) > 2 {
			return nil, fmt.Errorf("invalid argument '%s'", strings.TrimSpace(arg))
		}
		typeStr := tokens[0]
		var name string
		if len(tokens) == 2 {
			name = tokens[1]
		}
		argType, err := newType(typeStr, "")
		if err != nil {
			return nil, err
		}
		args = append(args, abi.Argument{
			Name: name,
			Type: argType,
		})
	}
	return args, nil
}

// ParseMethodSig parses a human-readable method signature into ABIEntry, e.g.
// "function balanceOf(address owner) view returns (uint256)" or "totalSupply() returns(uint256)"
func ParseMethodSig(str string) (ABIEntry, error) {
	matches := methodSigRegex.FindStringSubmatch(str)
	if matches == nil {
		return ABIEntry{}, fmt.Errorf("invalid method signature '%s'", str)
	}
	inputs, err := parseArguments(matches[2])
	if err != nil {
		return ABIEntry{}, err
	}
	outputs, err := parseArguments(matches[4])
	if err != nil {
		return ABIEntry{}, err
	}
	mutability := "nonpayable"
	for _, mod := range strings.Fields(matches[3]) {
		switch mod {
		case "view", "pure", "payable", "nonpayable":
			mutability = mod
		}
	}
	return ABIEntry{
		Type:            "function",
		Name:            matches[1],
		Inputs:          inputs,
		Outputs:         outputs,
		StateMutability: mutability,
	}, nil
}

// ParseHumanABI builds an Interface from a list of human-readable method signatures.
func ParseHumanABI(name string, sigs []string) (*Interface, error) {
	entries := make([]ABIEntry, 0, len(sigs))
	for _, sig := range sigs {
		entry, err := ParseMethodSig(sig)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return NewInterface(name, entries)
}

// ABIElements is a list of abi entries which can be decoded from either
// a JSON ABI array, a single quoted method signature or a mix of both.
type ABIElements []ABIEntry

func (list *ABIElements) UnmarshalJSON(data []byte) error {
	if text, err := strconv.Unquote(string(data)); err == nil {
		entry, err := ParseMethodSig(text)
		if err != nil {
			return err
		}
		*list = append(*list, entry)
		return nil
	}

	rawEntries := []json.RawMessage{}
	if err := json.Unmarshal(data, &rawEntries); err != nil {
		return err
	}
	for _, raw := range rawEntries {
		var (
			entry ABIEntry
			err   error
		)
		if text, qerr := strconv.Unquote(string(raw)); qerr == nil {
			entry, err = ParseMethodSig(text)
		} else {
			err = json.Unmarshal(raw, &entry)
		}
		if err != nil {
			return err
		}
		*list = append(*list, entry)
	}
	return nil
}

// UnmarshalInterface decodes a JSON ABI document into an Interface.
func UnmarshalInterface(name string, data []byte) (*Interface, error) {
	list := ABIElements{}
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	return NewInterface(name, list)
}
