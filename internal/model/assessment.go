package model

// ModelOutputs holds the raw predictions of the five classifiers for one image.
type ModelOutputs struct {
	Shape   []float32
	Spot    float32
	Stem    float32
	Webbing float32
	Disease []float32
}

// Assessment is the human-readable verdict returned to clients.
type Assessment struct {
	Spot           string `json:"spot"`
	Stem           string `json:"stem"`
	Webbing        string `json:"webbing"`
	Shape          string `json:"shape"`
	Disease        string `json:"disease"`
	Recommendation string `json:"recommendation"`
}
