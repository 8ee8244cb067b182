package cleaner

import "regexp"

// Rules holds the compiled marker patterns. A Rules value is never modified
// after construction and may be shared between cleaners.
type Rules struct {
	start *regexp.Regexp
	end   *regexp.Regexp
	split *regexp.Regexp
}

// Marker patterns of the IRLYNC logger. Matching is case-insensitive and
// searches anywhere in the line.
const (
	StartPattern = `(?is)Start_Prognosis_datadump >>>>>>>>>>>>>>>>>>: (.*)`
	EndPattern   = `(?is)<<<<<<<<<<<<<<<<<< Stop_Prognosis_datadump`
	SplitPattern = `(?is)IRLYNC\s+httpserv\s+\d+\s+T\d+\s+(.*)`
)

var defaultRules = Rules{
	start: regexp.MustCompile(StartPattern),
	end:   regexp.MustCompile(EndPattern),
	split: regexp.MustCompile(SplitPattern),
}

// DefaultRules returns the IRLYNC marker rules.
func DefaultRules() Rules {
	return defaultRules
}

// NewRules compiles custom marker patterns. The start and split patterns
// must capture the retained tail of the line in their first group.
func NewRules(start, end, split string) (Rules, error) {
	var r Rules
	var err error
	if r.start, err = compileTail("start", start); err != nil {
		return Rules{}, err
	}
	if r.end, err = regexp.Compile(end); err != nil {
		return Rules{}, &PatternError{Name: "end", Err: err}
	}
	if r.split, err = compileTail("split", split); err != nil {
		return Rules{}, err
	}
	return r, nil
}

func compileTail(name, pattern string) (*regexp.Regexp, error) {
	rx, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &PatternError{Name: name, Err: err}
	}
	if rx.NumSubexp() < 1 {
		return nil, &PatternError{Name: name, Err: errNoTailGroup}
	}
	return rx, nil
}
