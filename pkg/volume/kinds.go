package volume

import (
	"fmt"
	"strings"
)

// InputKind is the per-channel normalization applied to input volumes.
type InputKind int

const (
	InputNone InputKind = iota
	Standard2D
	Standard3D
)

func (k InputKind) String() string {
	switch k {
	case Standard2D:
		return "standard2D"
	case Standard3D:
		return "standard3D"
	default:
		return "none"
	}
}

// ParseInputKind resolves a preprocessing token.
func ParseInputKind(token string) (InputKind, error) {
	token = strings.TrimSpace(token)
	switch {
	case token == "standard2D":
		return Standard2D, nil
	case token == "standard3D":
		return Standard3D, nil
	case token == "none" || strings.Contains(token, "None"):
		return InputNone, nil
	}
	return InputNone, fmt.Errorf("input preprocessing type %q: %w", token, ErrInvalidConfiguration)
}

// ParseInputKinds resolves a comma-separated token list.
func ParseInputKinds(tokens string) ([]InputKind, error) {
	var kinds []InputKind
	for _, tok := range strings.Split(tokens, ",") {
		k, err := ParseInputKind(tok)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// OutputKind is the label preprocessing applied to output volumes.
type OutputKind int

const (
	OutputNone OutputKind = iota
	BinaryClass
	OneClass
	Affinity
)

func (k OutputKind) String() string {
	switch k {
	case BinaryClass:
		return "binary_class"
	case OneClass:
		return "one_class"
	case Affinity:
		return "affinity"
	default:
		return "none"
	}
}

// ParseOutputKind resolves a label preprocessing token. Any token
// containing "aff" selects affinity.
func ParseOutputKind(token string) (OutputKind, error) {
	token = strings.TrimSpace(token)
	switch {
	case token == "none" || token == "None":
		return OutputNone, nil
	case token == "binary_class" || token == "binaryClass":
		return BinaryClass, nil
	case token == "one_class" || token == "oneClass":
		return OneClass, nil
	case strings.Contains(token, "aff"):
		return Affinity, nil
	}
	return OutputNone, fmt.Errorf("label preprocessing type %q: %w", token, ErrInvalidConfiguration)
}

// ParseOutputKinds resolves a comma-separated token list. Label volumes
// take exactly one preprocessing kind.
func ParseOutputKinds(tokens string) (OutputKind, error) {
	parts := strings.Split(tokens, ",")
	if len(parts) != 1 {
		return OutputNone, fmt.Errorf("label volumes take one preprocessing type, got %q: %w", tokens, ErrInvalidConfiguration)
	}
	return ParseOutputKind(parts[0])
}
