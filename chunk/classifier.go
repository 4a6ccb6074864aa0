package chunk

import (
	"chunksplit/cas"
	"chunksplit/modulematch"
)

// Classifier applies user override rules ahead of the built-in rules.
// Internal and virtual modules are never split, even by an override.
// A Classifier is read-only after New and safe for concurrent use.
type Classifier struct {
	overrides *modulematch.Matcher
	digest    string
}

// New creates a classifier. overrides may be nil.
func New(overrides *modulematch.Matcher) *Classifier {
	c := &Classifier{overrides: overrides}
	c.digest = rulesDigest(overrides)
	return c
}

// Classify returns the chunk for id under mode.
func (c *Classifier) Classify(id string, mode Mode) Result {
	if mode != Production {
		return None()
	}
	if isInternal(id) {
		return None()
	}
	if c != nil {
		if name, ok := c.overrides.Match(id); ok {
			return Some(name)
		}
	}
	return classify(id)
}

// Overrides returns the override rules, or nil.
func (c *Classifier) Overrides() *modulematch.Matcher {
	if c == nil {
		return nil
	}
	return c.overrides
}

// Digest identifies the full rule set: the built-in tables plus overrides.
// Two classifiers with equal digests classify every id the same way.
func (c *Classifier) Digest() string {
	if c == nil {
		return rulesDigest(nil)
	}
	return c.digest
}

func rulesDigest(overrides *modulematch.Matcher) string {
	list := overrides.Rules()
	if list == nil {
		list = []modulematch.Rule{}
	}
	payload := map[string]interface{}{
		"version":   RulesVersion,
		"overrides": list,
	}
	// The payload holds only strings, which always marshal.
	d, err := cas.Digest(payload)
	if err != nil {
		panic("chunk: digesting rules: " + err.Error())
	}
	return d
}
