package output

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/yndnr/respd-go/internal/protocol/resp"
)

// YAMLFormatter formats replies as YAML.
type YAMLFormatter struct{}

// Format writes reply as a YAML document.
func (f *YAMLFormatter) Format(w io.Writer, reply resp.Reply) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(Value(reply)); err != nil {
		return err
	}
	return encoder.Close()
}
