package model

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Kinds name the concrete classifier held in an encoded payload.
const (
	KindLogisticRegression = "logistic_regression"
	KindRandomForest       = "random_forest"
	KindDecisionTree       = "decision_tree"
)

// KindOf returns the payload kind of a classifier.
func KindOf(c Classifier) (string, error) {
	switch c.(type) {
	case *LogisticRegression:
		return KindLogisticRegression, nil
	case *RandomForest:
		return KindRandomForest, nil
	case *DecisionTreeClassifier:
		return KindDecisionTree, nil
	}
	return "", fmt.Errorf("model: no codec for %T", c)
}

// Marshal encodes a fitted classifier with msgpack.
func Marshal(c Classifier) (kind string, payload []byte, err error) {
	kind, err = KindOf(c)
	if err != nil {
		return "", nil, err
	}
	payload, err = msgpack.Marshal(c)
	if err != nil {
		return "", nil, fmt.Errorf("model: encode %s: %w", kind, err)
	}
	return kind, payload, nil
}

// Unmarshal decodes a payload produced by Marshal.
func Unmarshal(kind string, payload []byte) (Classifier, error) {
	var c Classifier
	switch kind {
	case KindLogisticRegression:
		c = &LogisticRegression{}
	case KindRandomForest:
		c = &RandomForest{}
	case KindDecisionTree:
		c = &DecisionTreeClassifier{}
	default:
		return nil, fmt.Errorf("model: unknown kind %q", kind)
	}
	if err := msgpack.Unmarshal(payload, c); err != nil {
		return nil, fmt.Errorf("model: decode %s: %w", kind, err)
	}
	return c, nil
}
