package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viktors2008/mediadrive/internal/client/models"
)

func rec(id, name string) models.FileRecord {
	return models.FileRecord{ID: id, Name: name, Size: 1}
}

func ids(files []models.FileRecord) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.ID
	}
	return out
}

func TestAddMany_AppendsAndDedups(t *testing.T) {
	r := New()
	r.AddMany([]models.FileRecord{rec("a", "one"), rec("b", "two")})
	r.AddMany([]models.FileRecord{rec("b", "dup"), rec("c", "three")})

	assert.Equal(t, []string{"a", "b", "c"}, ids(r.Files()))
	// the duplicate must not overwrite the original either
	assert.Equal(t, "two", r.Files()[1].Name)
}

func TestAddOne_PrependsAndIgnoresDuplicate(t *testing.T) {
	r := New()
	r.AddMany([]models.FileRecord{rec("a", "one")})
	r.AddOne(rec("b", "newest"))
	r.AddOne(rec("b", "again"))

	require.Equal(t, []string{"b", "a"}, ids(r.Files()))
	assert.Equal(t, "newest", r.Files()[0].Name)
}

func TestAddMany_OverlappingBatchesNeverDuplicate(t *testing.T) {
	r := New()
	batch := []models.FileRecord{rec("a", "x"), rec("b", "y"), rec("c", "z")}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.AddMany(batch)
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, r.Len())
}

func TestRemove(t *testing.T) {
	r := New()
	r.AddMany([]models.FileRecord{rec("a", "one"), rec("b", "two")})

	r.Remove("a")
	assert.Equal(t, []string{"b"}, ids(r.Files()))

	// absent id is a no-op
	r.Remove("nope")
	assert.Equal(t, 1, r.Len())

	// removed id can be re-added
	r.AddOne(rec("a", "back"))
	assert.Equal(t, []string{"a", "b"}, ids(r.Files()))
}

func TestTakeFile_RemovesAndCallsBack(t *testing.T) {
	r := New()
	r.AddMany([]models.FileRecord{rec("a", "one"), rec("b", "two")})

	var got *models.FileRecord
	r.TakeFile("a", func(f models.FileRecord) { got = &f })

	require.NotNil(t, got)
	assert.Equal(t, "one", got.Name)
	assert.Equal(t, []string{"b"}, ids(r.Files()))
}

func TestTakeFile_AbsentIdDoesNotCallBack(t *testing.T) {
	r := New()
	called := false
	r.TakeFile("missing", func(models.FileRecord) { called = true })
	assert.False(t, called)
}

// Privacy toggle round trip: take, flip the flag, re-insert. The record must
// end up present exactly once with the new flag.
func TestTakeFile_ToggleReinsert(t *testing.T) {
	r := New()
	public := rec("x", "doc")
	public.IsPrivate = false
	r.AddMany([]models.FileRecord{rec("a", "one"), public})

	r.TakeFile("x", func(f models.FileRecord) {
		f.IsPrivate = true
		r.AddOne(f)
	})

	files := r.Files()
	require.Equal(t, 2, len(files))
	assert.Equal(t, "x", files[0].ID)
	assert.True(t, files[0].IsPrivate)
}

func TestSetCursor(t *testing.T) {
	r := New()
	assert.Nil(t, r.Cursor())

	c := "opaque-token"
	r.SetCursor(&c)
	require.NotNil(t, r.Cursor())
	assert.Equal(t, "opaque-token", *r.Cursor())

	r.SetCursor(nil)
	assert.Nil(t, r.Cursor())
}

func TestFiles_ReturnsCopy(t *testing.T) {
	r := New()
	r.AddOne(rec("a", "one"))

	snap := r.Files()
	snap[0].Name = "mutated"

	assert.Equal(t, "one", r.Files()[0].Name)
}
