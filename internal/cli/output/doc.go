// Package output renders server replies for respd-cli.
//
// The raw format mimics redis-cli (quoted bulk strings, "(integer)" and
// "(nil)" markers, numbered array items). The json and yaml formats render
// the reply as a plain value for scripting; error replies become an object
// with a single "error" field.
package output
