package output

import (
	"encoding/json"
	"io"

	"github.com/yndnr/respd-go/internal/protocol/resp"
)

// JSONFormatter formats replies as JSON.
type JSONFormatter struct{}

// Format writes reply as indented JSON.
func (f *JSONFormatter) Format(w io.Writer, reply resp.Reply) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(Value(reply))
}
