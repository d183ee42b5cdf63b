package ensemble

import (
	"encoding/json"
	"fmt"
)

// Classifier is a probabilistic multi-class model over fixed-length feature vectors.
// Fit consumes row-major samples with labels in [0, classes); PredictProba returns
// a distribution over classes summing to one.
type Classifier interface {
	Fit(samples [][]float64, labels []int) error
	PredictProba(features []float64) []float64
	FeatureImportances() []float64
}

const (
	KindLogistic = "logistic"
	KindForest   = "random_forest"
	KindBoost    = "gradient_boost"
)

// Member pairs a classifier with its vote weight in the ensemble.
type Member struct {
	Kind       string
	Weight     float64
	Classifier Classifier
}

// Artifact is the complete serializable model for one market: the trained
// members plus the isotonic calibrator fitted on the calibration slice.
type Artifact struct {
	Members    []*Member
	Calibrator *Isotonic
}

// Combine returns the weight-averaged class distribution across members.
func Combine(members []*Member, features []float64) []float64 {
	var combined []float64
	totalWeight := 0.0
	for _, member := range members {
		probs := member.Classifier.PredictProba(features)
		if combined == nil {
			combined = make([]float64, len(probs))
		}
		for c, p := range probs {
			combined[c] += member.Weight * p
		}
		totalWeight += member.Weight
	}
	if totalWeight > 0 {
		for c := range combined {
			combined[c] /= totalWeight
		}
	}
	return combined
}

type artifactEnvelope struct {
	Members    json.RawMessage `json:"members"`
	Calibrator *Isotonic       `json:"calibrator,omitempty"`
}

// MarshalArtifact serializes a trained artifact for the model store.
func (a *Artifact) MarshalArtifact() (json.RawMessage, error) {
	members, err := MarshalMembers(a.Members)
	if err != nil {
		return nil, err
	}
	return json.Marshal(artifactEnvelope{Members: members, Calibrator: a.Calibrator})
}

// UnmarshalArtifact restores an artifact persisted by MarshalArtifact.
func UnmarshalArtifact(data json.RawMessage) (*Artifact, error) {
	var envelope artifactEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode model artifact: %w", err)
	}
	members, err := UnmarshalMembers(envelope.Members)
	if err != nil {
		return nil, err
	}
	return &Artifact{Members: members, Calibrator: envelope.Calibrator}, nil
}

type memberEnvelope struct {
	Kind   string          `json:"kind"`
	Weight float64         `json:"weight"`
	State  json.RawMessage `json:"state"`
}

// MarshalMembers serializes trained members for storage alongside the model row.
func MarshalMembers(members []*Member) (json.RawMessage, error) {
	envelopes := make([]memberEnvelope, 0, len(members))
	for _, member := range members {
		state, err := json.Marshal(member.Classifier)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize %s member: %w", member.Kind, err)
		}
		envelopes = append(envelopes, memberEnvelope{
			Kind:   member.Kind,
			Weight: member.Weight,
			State:  state,
		})
	}
	return json.Marshal(envelopes)
}

// UnmarshalMembers restores members persisted by MarshalMembers.
func UnmarshalMembers(data json.RawMessage) ([]*Member, error) {
	var envelopes []memberEnvelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return nil, fmt.Errorf("failed to decode ensemble members: %w", err)
	}

	members := make([]*Member, 0, len(envelopes))
	for _, envelope := range envelopes {
		var classifier Classifier
		switch envelope.Kind {
		case KindLogistic:
			classifier = &Logistic{}
		case KindForest:
			classifier = &Forest{}
		case KindBoost:
			classifier = &Boost{}
		default:
			return nil, fmt.Errorf("unknown ensemble member kind: %s", envelope.Kind)
		}
		if err := json.Unmarshal(envelope.State, classifier); err != nil {
			return nil, fmt.Errorf("failed to decode %s member: %w", envelope.Kind, err)
		}
		members = append(members, &Member{
			Kind:       envelope.Kind,
			Weight:     envelope.Weight,
			Classifier: classifier,
		})
	}
	return members, nil
}
