package ripeness

import (
	"strings"

	"melonsense/internal/model"
)

const (
	// BinaryThreshold splits the ripeness classifiers: p < 0.5 is the first label.
	BinaryThreshold = 0.5
	// DiseaseThreshold marks a disease class as present when p > 0.5.
	DiseaseThreshold = 0.5
)

const (
	SpotRipe    = "Yellow spot: ripe"
	SpotNotRipe = "White or pale yellow spot: Not ripe"

	StemNotRipe = "Green stem: Not ripe"
	StemRipe    = "Brown stem: Ripe"

	WebbingPresent    = "Webbing Present: Ripe"
	WebbingNotPresent = "Webbing Not Present: Not ripe"

	UnknownShape = "Unknown shape"

	DiseasesPresentPrefix = "Diseases Present: "
	NoSignificantDiseases = "No significant diseases detected."

	RecommendBuy   = "This watermelon is likely good to buy."
	RecommendAvoid = "Consider avoiding this watermelon due to detected diseases."
)

// Shape is a class index of the shape classifier.
type Shape int

const (
	ShapeRound Shape = iota
	ShapeElongated
	ShapeIrregular
)

var shapeMessages = map[Shape]string{
	ShapeRound:     "The watermelon is Round: Ripe and Sweet",
	ShapeElongated: "The watermelon is Elongated: Watery",
	ShapeIrregular: "The watermelon is Irregular: Not Ripe",
}

// Message returns the description of s, or UnknownShape.
func (s Shape) Message() string {
	if msg, ok := shapeMessages[s]; ok {
		return msg
	}
	return UnknownShape
}

// Disease is a class index of the disease classifier.
type Disease int

const (
	Anthracnose Disease = iota
	BacterialFruitBlotch
	BlossomEndRot
	GummyStemBlight
	CrossStitch
	GreasySpot
	TargetCluster
	PhytophthoraFruitRot
	NoDiseases
)

var diseaseNames = [...]string{
	Anthracnose:          "Anthracnoseon",
	BacterialFruitBlotch: "Bacterial fruit blotch",
	BlossomEndRot:        "Blossom End Rot",
	GummyStemBlight:      "Gummy Stem Blight",
	CrossStitch:          "Cross Stitch",
	GreasySpot:           "Greasy Spot",
	TargetCluster:        "Target Cluster",
	PhytophthoraFruitRot: "Phytophthora Fruit Rot",
	NoDiseases:           "No diseases",
}

// DiseaseClassCount is the length of the disease classifier output.
const DiseaseClassCount = len(diseaseNames)

// Cosmetic conditions are never reported. NoDiseases is deliberately absent:
// it is thresholded like any other class.
var ignoredDiseases = map[Disease]bool{
	CrossStitch: true,
	GreasySpot:  true,
}

func (d Disease) String() string {
	if d < 0 || int(d) >= len(diseaseNames) {
		return "Unknown disease"
	}
	return diseaseNames[d]
}

// Reportable reports whether d is listed when present.
func (d Disease) Reportable() bool {
	return !ignoredDiseases[d]
}

// Interpret turns raw model outputs into an Assessment. It has no side effects.
func Interpret(out model.ModelOutputs) model.Assessment {
	diseases := PresentDiseases(out.Disease)

	return model.Assessment{
		Spot:           binary(out.Spot, SpotRipe, SpotNotRipe),
		Stem:           binary(out.Stem, StemNotRipe, StemRipe),
		Webbing:        binary(out.Webbing, WebbingPresent, WebbingNotPresent),
		Shape:          ClassifyShape(out.Shape).Message(),
		Disease:        diseaseMessage(diseases),
		Recommendation: recommendation(diseases),
	}
}

func binary(p float32, below, atOrAbove string) string {
	if p < BinaryThreshold {
		return below
	}
	return atOrAbove
}

// ClassifyShape returns the argmax of probs; the first maximum wins on ties.
// An empty vector yields -1.
func ClassifyShape(probs []float32) Shape {
	if len(probs) == 0 {
		return Shape(-1)
	}
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return Shape(best)
}

// PresentDiseases lists the reportable classes whose probability exceeds
// DiseaseThreshold, in class order. Entries past the class table are ignored.
func PresentDiseases(probs []float32) []Disease {
	var present []Disease
	for i, p := range probs {
		if i >= DiseaseClassCount {
			break
		}
		d := Disease(i)
		if p > DiseaseThreshold && d.Reportable() {
			present = append(present, d)
		}
	}
	return present
}

func diseaseMessage(present []Disease) string {
	if len(present) == 0 {
		return NoSignificantDiseases
	}
	names := make([]string, len(present))
	for i, d := range present {
		names[i] = d.String()
	}
	return DiseasesPresentPrefix + strings.Join(names, ", ")
}

func recommendation(present []Disease) string {
	if len(present) == 0 {
		return RecommendBuy
	}
	return RecommendAvoid
}
