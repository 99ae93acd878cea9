package model

type LabelKind string

const (
	// LabelKindRise fires when counter[t+H] - counter[t] >= threshold.
	LabelKindRise LabelKind = "rise"
	// LabelKindDrop fires when counter[t] - counter[t+H] >= threshold.
	LabelKindDrop LabelKind = "drop"
	// LabelKindMiniFail fires when a mini objective is on at t, its progress
	// counter rose by t+H and its completion counter did not.
	LabelKindMiniFail LabelKind = "mini_fail"
)

const (
	TaskMiss  = "miss"
	TaskAcc   = "acc"
	TaskMini  = "mini"
	TaskScore = "score"
)

var KnownTasks = []string{TaskMiss, TaskAcc, TaskMini, TaskScore}

// LabelFamily is one named prediction target with its own horizon and threshold.
type LabelFamily struct {
	Name      string    `json:"name" msgpack:"name"`
	Kind      LabelKind `json:"kind" msgpack:"kind"`
	Counter   string    `json:"counter" msgpack:"counter"`
	Horizon   int       `json:"horizon" msgpack:"horizon"`
	Threshold float64   `json:"threshold" msgpack:"threshold"`

	// Counters lists every column the family reads. For rise/drop families this is just Counter.
	Counters []string `json:"counters" msgpack:"counters"`

	BinaryOutput string `json:"binaryOutput" msgpack:"binaryOutput"`
	DeltaOutput  string `json:"deltaOutput,omitempty" msgpack:"deltaOutput,omitempty"`
	MaskOutput   string `json:"maskOutput,omitempty" msgpack:"maskOutput,omitempty"`
}

// Outputs returns the names of the label arrays produced by the family, in archive order.
func (f LabelFamily) Outputs() []string {
	outputs := []string{f.BinaryOutput}
	if f.DeltaOutput != "" {
		outputs = append(outputs, f.DeltaOutput)
	}
	if f.MaskOutput != "" {
		outputs = append(outputs, f.MaskOutput)
	}
	return outputs
}
