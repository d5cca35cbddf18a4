package types

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestIsValidAddress_KnownCases(t *testing.T) {
	t.Parallel()

	assert.True(t, IsValidAddress(ZeroAddress))
	assert.True(t, IsValidAddress("0x1234567890abcdef1234567890ABCDEF12345678"))
	assert.False(t, IsValidAddress("0x123"))
	assert.False(t, IsValidAddress("not an address"))
}

func TestIsValidBytes32_KnownCases(t *testing.T) {
	t.Parallel()

	assert.True(t, IsValidBytes32("0x"+hex64()))
	assert.False(t, IsValidBytes32("0x"+hex64()[:10]))
}

func hex64() string {
	s := ""
	for i := 0; i < 64; i++ {
		s += "a"
	}
	return s
}

// Property: ∀ contract-bound address string a: a = zero-address ∨ matches
// the 20-byte hex form (§8).
func TestProperty_AddressLaw(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	hexByte := gen.IntRange(0, 255)

	properties.Property("well-formed 20-byte hex addresses always validate", prop.ForAll(
		func(bytes []int) bool {
			addr := "0x"
			for _, b := range bytes {
				addr += fmt.Sprintf("%02x", b)
			}
			return IsValidAddress(addr) == (len(bytes) == 20)
		},
		gen.SliceOfN(20, hexByte),
	))

	properties.TestingRun(t)
}
