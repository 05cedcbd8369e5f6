package sparse

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeDropsShortTokensAndFolds(t *testing.T) {
	got := Tokenize("Go is Great! a_b2 42 x")
	assert.Equal(t, []string{"go", "is", "great", "a_b2", "42"}, got)
}

func TestEncodeRequiresPriorUpdateIDF(t *testing.T) {
	e := New()
	postings := e.Encode("unseen words here")
	assert.Empty(t, postings)
}

func TestUpdateIDFThenEncodeProducesScores(t *testing.T) {
	e := New()
	e.UpdateIDF("the quick brown fox jumps over the lazy dog")
	e.UpdateIDF("the lazy dog sleeps all day long")

	postings := e.Encode("the quick fox")
	require.NotEmpty(t, postings)
	for _, p := range postings {
		assert.Greater(t, p.Score, 0.0)
	}
}

func TestEncodeQuerySkipsUnknownTerms(t *testing.T) {
	e := New()
	e.UpdateIDF("known term appears here")
	postings := e.EncodeQuery("known absolutelyunknownterm")
	for _, p := range postings {
		assert.NotEqual(t, uint32(9999), p.Index)
	}
	assert.NotEmpty(t, postings)
}

func TestDotProductSymmetric(t *testing.T) {
	a := []Posting{{Index: 1, Score: 2}, {Index: 3, Score: 1}}
	b := []Posting{{Index: 3, Score: 5}, {Index: 4, Score: 9}}
	assert.Equal(t, DotProduct(a, b), DotProduct(b, a))
	assert.Equal(t, 5.0, DotProduct(a, b))
}

func TestEncoderRoundTripsThroughJSON(t *testing.T) {
	e := New()
	e.UpdateIDF("alpha beta gamma")
	e.UpdateIDF("beta gamma delta")

	data, err := json.Marshal(e)
	require.NoError(t, err)

	restored := New()
	require.NoError(t, json.Unmarshal(data, restored))

	before := e.Encode("alpha beta")
	after := restored.Encode("alpha beta")
	assert.Equal(t, before, after)
}
