package courses

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeSlug(t *testing.T) {
	assert.Equal(t, "intro-to-batik", MakeSlug("Intro to Batik!"))
	assert.Equal(t, "go-101", MakeSlug("  Go 101  "))
	assert.Equal(t, "a-b-c", MakeSlug("a --- b & c"))
	assert.Equal(t, "course", MakeSlug("???"))
	assert.Equal(t, "course", MakeSlug(""))
}
