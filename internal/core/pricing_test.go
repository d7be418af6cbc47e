package core

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestPriceFor(t *testing.T) {
	tests := []struct {
		name string
		want string
		wei  string
	}{
		{"abc", "0.5", "500000000000000000"},
		{"abcd", "0.3", "300000000000000000"},
		{"abcde", "0.1", "100000000000000000"},
		{"averyveryverylongname", "0.1", "100000000000000000"},
		{"猫猫猫", "0.5", "500000000000000000"},
		{"猫猫猫猫", "0.3", "300000000000000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PriceFor(tt.name).String())
			want, _ := new(big.Int).SetString(tt.wei, 10)
			assert.Equal(t, 0, want.Cmp(PriceWei(tt.name)))
		})
	}
}

func TestPriceForIsNonIncreasing(t *testing.T) {
	prev := PriceFor("abc")
	for _, name := range []string{"abcd", "abcde", "abcdef", "abcdefghij"} {
		p := PriceFor(name)
		assert.True(t, p.LessThanOrEqual(prev), "%s priced above a shorter name", name)
		prev = p
	}
}

func TestFormatWei(t *testing.T) {
	assert.Equal(t, "0.3", FormatWei(PriceWei("cats")))
	assert.Equal(t, "1", FormatWei(big.NewInt(1e18)))
	assert.Equal(t, "0", FormatWei(nil))
}

func TestValidateName(t *testing.T) {
	assert.ErrorIs(t, ValidateName(""), ErrEmptyName)
	assert.ErrorIs(t, ValidateName("a"), ErrNameTooShort)
	assert.ErrorIs(t, ValidateName("ab"), ErrNameTooShort)
	assert.ErrorIs(t, ValidateName("猫猫"), ErrNameTooShort)
	assert.NoError(t, ValidateName("abc"))
	assert.NoError(t, ValidateName("猫猫猫"))
}

func TestDisplayHelpers(t *testing.T) {
	assert.Equal(t, "0x1234...abcd", ShortAddress("0x1234567890abcdef1234567890abcdef1234abcd"))
	assert.Equal(t, "0x12", ShortAddress("0x12"))
	assert.Equal(t, "Not Connected", Session{}.WalletLabel())
	assert.Equal(t, "cats.cat", FullName("cats", ".cat"))
	assert.Equal(t,
		"https://testnets.opensea.io/assets/mumbai/0x72809fd489a5e7354dAC43bB2FedA3a6B40Ae538/3",
		MarketplaceURL("https://testnets.opensea.io/assets/mumbai/",
			common.HexToAddress("0x72809fd489a5e7354dAC43bB2FedA3a6B40Ae538"), 3))
	assert.Equal(t, "Unknown network 0x539", newSession("0xabc", "0x539").NetworkLabel())
	assert.Equal(t, "Polygon Mumbai Testnet", newSession("0xabc", "0x13881").NetworkLabel())
}
