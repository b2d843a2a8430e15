package mux

// Param is one captured path parameter: the capture or wildcard name
// and the decoded text it matched. Valid is false when the capture
// group did not participate in the match (for example one branch of an
// alternation).
type Param struct {
	Name  string
	Value string
	Valid bool
}

// ParamList holds the parameters captured along a matched path, in
// match order. It is the only channel by which captured values leave
// the routing core; callers that need typed values deserialize from
// this sequence.
type ParamList struct {
	params []Param
}

func (l *ParamList) append(p Param) {
	l.params = append(l.params, p)
}

// truncate drops the parameters appended after length n. Used when a
// subtree handler backtracks past segments a deeper match had
// consumed.
func (l *ParamList) truncate(n int) {
	l.params = l.params[:n]
}

// Len returns the number of captured parameters.
func (l *ParamList) Len() int {
	return len(l.params)
}

// All returns the captured parameters in match order. The returned
// slice is shared; callers must not modify it.
func (l *ParamList) All() []Param {
	return l.params
}

// Get returns the value of the first parameter captured under the
// given name and whether such a parameter exists with a valid value.
func (l *ParamList) Get(name string) (string, bool) {
	for _, p := range l.params {
		if p.Name == name {
			return p.Value, p.Valid
		}
	}
	return "", false
}
