package node

// FlagSet holds the values of the flags of a command. The client fills it with
// the parsed flags and sends it in JSON to the daemon, so the getters accept
// the types that come out of a JSON decoding.
//
// - implements cli.Flags
type FlagSet map[string]interface{}

// String implements cli.Flags. It returns an empty string when the flag is
// missing or is not a text.
func (fset FlagSet) String(name string) string {
	value, _ := fset[name].(string)
	return value
}

// StringSlice implements cli.Flags. It returns nil when the flag is missing or
// is not a list, and it skips the elements that are not texts.
func (fset FlagSet) StringSlice(name string) []string {
	switch list := fset[name].(type) {
	case []string:
		return list
	case []interface{}:
		values := make([]string, 0, len(list))
		for _, elem := range list {
			text, ok := elem.(string)
			if ok {
				values = append(values, text)
			}
		}

		return values
	default:
		return nil
	}
}

// Path implements cli.Flags.
func (fset FlagSet) Path(name string) string {
	return fset.String(name)
}

// Int implements cli.Flags. It returns zero when the flag is missing or is not
// a whole number.
func (fset FlagSet) Int(name string) int {
	switch num := fset[name].(type) {
	case int:
		return num
	case float64:
		// JSON decodes every number to a float.
		if num == float64(int(num)) {
			return int(num)
		}
	}

	return 0
}

// Bool implements cli.Flags. It returns false when the flag is missing.
func (fset FlagSet) Bool(name string) bool {
	value, _ := fset[name].(bool)
	return value
}
