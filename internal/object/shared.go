package object

// sharedIntStrings pre-builds String values for the integers 0..9999,
// handed out by SharedInt. The command handlers do not call SharedInt:
// INCR and its siblings build each new value with NewStringFromInt.
const sharedIntegers = 10000

var sharedIntStrings [sharedIntegers]*String

func init() {
	for i := range sharedIntStrings {
		sharedIntStrings[i] = NewStringFromInt(int64(i))
	}
}

// SharedInt returns a shared String for small non-negative integers,
// falling back to a freshly-allocated one outside the pooled range.
func SharedInt(n int64) *String {
	if n >= 0 && n < sharedIntegers {
		return sharedIntStrings[n]
	}
	return NewStringFromInt(n)
}
