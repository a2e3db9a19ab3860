package runner

import "strings"

// DefaultErrorThreshold is the number of consecutive draw failures after
// which any failure is critical.
const DefaultErrorThreshold = 10

// DefaultFatalPatterns mark a draw failure as critical on first sight. They
// match messages about a missing or None object in either engine.
var DefaultFatalPatterns = []string{"NoneType", "None", "not found", "of undefined", "of null"}

// Classifier decides whether a draw failure is fatal to the running mode.
// consecutive counts the failure being classified.
type Classifier interface {
	Classify(err error, consecutive int) Severity
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(err error, consecutive int) Severity

func (f ClassifierFunc) Classify(err error, consecutive int) Severity {
	return f(err, consecutive)
}

// SubstringClassifier treats a failure as critical when its message
// contains any of Patterns, or when consecutive reaches Threshold.
// A zero Threshold disables the count rule.
type SubstringClassifier struct {
	Patterns  []string
	Threshold int
}

// DefaultClassifier returns the stock substring classifier.
func DefaultClassifier() SubstringClassifier {
	return SubstringClassifier{
		Patterns:  DefaultFatalPatterns,
		Threshold: DefaultErrorThreshold,
	}
}

func (c SubstringClassifier) Classify(err error, consecutive int) Severity {
	if c.Threshold > 0 && consecutive >= c.Threshold {
		return Critical
	}
	msg := err.Error()
	for _, p := range c.Patterns {
		if p != "" && strings.Contains(msg, p) {
			return Critical
		}
	}
	return Transient
}
