package util

// StringSet answers membership questions for small id rosters, like
// the admin and host lists of the access control file.
type StringSet map[string]struct{}

func NewStringSet(keys ...string) StringSet {
	s := make(StringSet, len(keys))

	for _, k := range keys {
		s.Add(k)
	}

	return s
}

func (s StringSet) Add(key string) {
	s[key] = struct{}{}
}

func (s StringSet) Has(key string) bool {
	_, ok := s[key]

	return ok
}

func (s StringSet) Empty() bool {
	return len(s) == 0
}
