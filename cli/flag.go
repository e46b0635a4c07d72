package cli

// StringFlag is a flag with a text value. Env is the environment variable
// read when the flag is not given.
type StringFlag struct {
	Name     string
	Aliases  []string
	Usage    string
	Env      string
	Required bool
	Value    string
}

// FlagName implements cli.Flag.
func (f StringFlag) FlagName() string {
	return f.Name
}

// StringSliceFlag is a flag that can be repeated to give several values.
type StringSliceFlag struct {
	Name     string
	Usage    string
	Required bool
	Value    []string
}

// FlagName implements cli.Flag.
func (f StringSliceFlag) FlagName() string {
	return f.Name
}

// IntFlag is a flag with an integer value.
type IntFlag struct {
	Name     string
	Usage    string
	Required bool
	Value    int
}

// FlagName implements cli.Flag.
func (f IntFlag) FlagName() string {
	return f.Name
}

// BoolFlag is a flag set to true by its presence.
type BoolFlag struct {
	Name    string
	Aliases []string
	Usage   string
	Value   bool
}

// FlagName implements cli.Flag.
func (f BoolFlag) FlagName() string {
	return f.Name
}
