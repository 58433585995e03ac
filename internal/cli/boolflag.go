package cli

import (
	"errors"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"
)

var errInvalidBool = errors.New("invalid boolean value")

// boolish is a boolean flag value that also understands yes/no and on/off.
// A bare flag means true.
type boolish bool

var _ flag.Value = (*boolish)(nil)

func (b *boolish) String() string {
	return strconv.FormatBool(bool(*b))
}

func (b *boolish) Type() string {
	return "bool"
}

func (b *boolish) Set(s string) error {
	v, err := parseBoolish(s)
	if err != nil {
		return err
	}

	*b = boolish(v)

	return nil
}

func parseBoolish(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "y", "yes", "on":
		return true, nil
	case "0", "f", "false", "n", "no", "off":
		return false, nil
	default:
		return false, errInvalidBool
	}
}

// boolishVarP defines a boolish flag on fs.
func boolishVarP(fs *flag.FlagSet, p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f := fs.VarPF((*boolish)(p), name, shorthand, usage)
	f.NoOptDefVal = "true"
}
