package stringutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var caseConversionTests = []struct {
	pascalCase string
	snakeCase  string
}{
	{"ID", "id"},
	{"VideoID", "video_id"},
	{"CutID", "cut_id"},
	{"VoterID", "voter_id"},
	{"CreatedAt", "created_at"},
	{"UpdatedAt", "updated_at"},
	{"CutPosition", "cut_position"},
	{"VideoCreatedAt", "video_created_at"},
	{"UpvoteCount", "upvote_count"},
	{"QueueName", "queue_name"},
	{"RunAfter", "run_after"},
	{"FailureDelay", "failure_delay"},
	{"AttemptsRemaining", "attempts_remaining"},
	{"ReservedUntil", "reserved_until"},
	{"ErrorMessages", "error_messages"},
}

func TestPascalToSnake(t *testing.T) {
	for _, tc := range caseConversionTests {
		t.Run(tc.pascalCase, func(t *testing.T) {
			a := assert.New(t)
			a.Equal(tc.snakeCase, PascalToSnake(tc.pascalCase))
		})
	}
}

func BenchmarkPascalToSnake(b *testing.B) {
	for _, tc := range caseConversionTests {
		b.Run(tc.pascalCase, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				PascalToSnake(tc.pascalCase)
			}
		})
	}
}

func TestPascalToTitle(t *testing.T) {
	a := assert.New(t)

	a.Equal("Queue Name", PascalToTitle("QueueName"))
	a.Equal("Attempts Remaining", PascalToTitle("AttemptsRemaining"))
}

func TestLooksTrue(t *testing.T) {
	a := assert.New(t)

	for _, s := range []string{"1", "true", "Sí", " on "} {
		a.True(LooksTrue(s), s)
	}

	for _, s := range []string{"", "0", "no", "nope"} {
		a.False(LooksTrue(s), s)
	}
}

func TestPlural(t *testing.T) {
	a := assert.New(t)

	a.Equal("voto", Plural(1, "voto", "votos"))
	a.Equal("votos", Plural(0, "voto", "votos"))
	a.Equal("votos", Plural(12, "voto", "votos"))
}

func TestTruncate(t *testing.T) {
	a := assert.New(t)

	a.Equal("Goni", Truncate("Goni", 10))
	a.Equal("Extrañamos…", Truncate("Extrañamos Argentina", 11))
	a.Equal("Messi en la mesa", Truncate("Messi en la mesa", 0))
}
