package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_String(t *testing.T) {
	tests := []struct {
		name   string
		value  Value
		want   string
		quoted string
	}{
		{"null", Null(), "NULL", "NULL"},
		{"zero value is null", Value{}, "NULL", "NULL"},
		{"string", String("Alice"), "Alice", `"Alice"`},
		{"integral number", Number(5), "5", "5"},
		{"fraction", Number(2.5), "2.5", "2.5"},
		{"negative", Number(-12), "-12", "-12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.value.String())
			assert.Equal(t, tt.quoted, tt.value.Quoted())
		})
	}
}

func TestValue_JSON(t *testing.T) {
	row := []Value{Null(), String("5"), Number(5)}

	data, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `[null, "5", 5]`, string(data))

	var decoded []Value
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 3)
	assert.True(t, decoded[0].IsNull())
	s, ok := decoded[1].Str()
	assert.True(t, ok)
	assert.Equal(t, "5", s)
	n, ok := decoded[2].Num()
	assert.True(t, ok)
	assert.Equal(t, 5.0, n)

	var bad Value
	assert.Error(t, json.Unmarshal([]byte(`true`), &bad))
}

func TestTabularResult_Validate(t *testing.T) {
	ok := TabularResult{
		Columns: []string{"id", "name"},
		Rows:    [][]Value{{Number(1), String("a")}},
	}
	assert.NoError(t, ok.Validate())

	ragged := TabularResult{
		Columns: []string{"id", "name"},
		Rows:    [][]Value{{Number(1)}},
	}
	err := ragged.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1 has 1 values, expected 2")
}

func TestTabularResult_Clone(t *testing.T) {
	orig := TabularResult{
		Columns: []string{"id"},
		Rows:    [][]Value{{Number(1)}},
	}
	clone := orig.Clone()
	clone.Columns[0] = "changed"
	clone.Rows[0][0] = Number(2)

	assert.Equal(t, "id", orig.Columns[0])
	assert.Equal(t, Number(1), orig.Rows[0][0])
}

func TestOutcome_JSON(t *testing.T) {
	success := Succeeded(TabularResult{Columns: []string{"n"}, Rows: [][]Value{{Number(1)}}}, 1500*time.Microsecond)
	data, err := json.Marshal(success)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"success","result":{"columns":["n"],"rows":[[1]]},"elapsed_ms":1.5}`, string(data))

	failure := Failed("near \"SELCT\": syntax error")
	data, err = json.Marshal(failure)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"error","message":"near \"SELCT\": syntax error"}`, string(data))
	assert.False(t, failure.OK())
}

func TestChallengeKey(t *testing.T) {
	key := ChallengeKey{UnitID: 2, ChallengeID: 1}
	assert.Equal(t, "unit-2/challenge-1", key.String())
	assert.False(t, key.IsZero())
	assert.True(t, ChallengeKey{}.IsZero())

	assert.False(t, HintState{Key: key, Unlocked: 2}.Exhausted())
	assert.True(t, HintState{Key: key, Unlocked: MaxHints}.Exhausted())
}

func TestSummarize(t *testing.T) {
	records := []ProgressRecord{
		{UnitID: 1, ChallengeID: 1, PointsEarned: 100},
		{UnitID: 1, ChallengeID: 2, PointsEarned: 150},
	}

	s := Summarize(records, 8)
	assert.Equal(t, 250, s.TotalPoints)
	assert.Equal(t, 2, s.TotalCompleted)
	assert.InDelta(t, 25.0, s.CompletionPercentage, 1e-9)

	assert.Equal(t, ProgressSummary{}, Summarize(nil, 0))
	assert.Equal(t, ChallengeKey{UnitID: 1, ChallengeID: 2}, records[1].Key())
}
