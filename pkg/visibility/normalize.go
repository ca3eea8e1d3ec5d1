package visibility

// Normalized is the shape every operator works on.
type Normalized struct {
	Scalar  string
	Options []string
}

// Normalize converts an answer into its scalar and option-array form.
//
// The second return value is false when there is no answer at all, which is
// not the same thing as an empty answer.
func Normalize(answer *Answer) (Normalized, bool) {
	if answer == nil {
		return Normalized{}, false
	}

	scalar := string(answer.Value)
	if scalar == "" {
		scalar = answer.Text
	}

	options := answer.SelectedOptions
	if options == nil {
		options = []string{}
	}

	return Normalized{Scalar: scalar, Options: options}, true
}
