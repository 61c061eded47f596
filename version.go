package courier

import "fmt"

type Version struct {
	Major int  `json:"major"`
	Minor int  `json:"minor"`
	Patch int  `json:"patch"`
	Dev   bool `json:"dev"`
}

func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Dev {
		s += "-dev"
	}
	return s
}

// UserAgent is the product token sent by the bundled transport.
func (v Version) UserAgent() string {
	return "courier/" + v.String()
}

var BuiltVersion = Version{
	Major: 0,
	Minor: 3,
	Patch: 0,
	Dev:   false,
}
