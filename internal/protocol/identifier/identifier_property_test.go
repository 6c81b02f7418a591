package identifier

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genIdentifier() gopter.Gen {
	return gen.SliceOfN(Size, gen.UInt8()).Map(func(b []uint8) Identifier {
		var id Identifier
		copy(id[:], b)
		return id
	})
}

func TestIdentifierHexRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("FromHex(Hex(id)) == id", prop.ForAll(
		func(id Identifier) bool {
			got, err := FromHex(id.Hex())
			return err == nil && got == id
		},
		genIdentifier(),
	))

	properties.Property("FromHex rejects lengths other than 64", prop.ForAll(
		func(s string) bool {
			if len(s) == HexSize {
				return true
			}
			_, err := FromHex(s)
			return err != nil
		},
		gen.RegexMatch("[0-9a-f]{0,80}"),
	))

	properties.Property("FromHex rejects non-hex characters", prop.ForAll(
		func(id Identifier, pos int, r rune) bool {
			h := []rune(id.Hex())
			h[pos] = r
			_, err := FromHex(string(h))
			return err != nil
		},
		genIdentifier(),
		gen.IntRange(0, HexSize-1),
		gen.RuneRange('g', 'z'),
	))

	properties.Property("String is 0x-prefixed Hex", prop.ForAll(
		func(id Identifier) bool {
			return strings.TrimPrefix(id.String(), "0x") == id.Hex()
		},
		genIdentifier(),
	))

	properties.TestingRun(t)
}
