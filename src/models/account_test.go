package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAccountType(t *testing.T) {
	assert.Equal(t, AccountTypeTFSA, NormalizeAccountType("TFSA"))
	assert.Equal(t, AccountTypeMargin, NormalizeAccountType("margin"))
	assert.Equal(t, AccountTypeCash, NormalizeAccountType(" Cash "))
	assert.Equal(t, AccountTypeFHSA, NormalizeAccountType("fhsa"))
}

func TestNormalizeAccountType_UnrecognizedDefaultsToOther(t *testing.T) {
	assert.Equal(t, AccountTypeOther, NormalizeAccountType("CryptoVault"))
	assert.Equal(t, AccountTypeOther, NormalizeAccountType(""))
}
