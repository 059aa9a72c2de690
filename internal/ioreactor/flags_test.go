package ioreactor

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestFlagsHasAndHasAll(t *testing.T) {
	f := FlagConnected | FlagNotifySI
	assert.Check(t, f.Has(FlagConnected))
	assert.Check(t, f.Has(FlagNotifySI|FlagError))
	assert.Check(t, !f.Has(FlagError))
	assert.Check(t, f.HasAll(FlagConnected|FlagNotifySI))
	assert.Check(t, !f.HasAll(FlagConnected|FlagError))
}

func TestFlagsSetAndClear(t *testing.T) {
	var f Flags
	f = f.Set(FlagCurrRDEna)
	assert.Check(t, f.Has(FlagCurrRDEna))
	f = f.Clear(FlagCurrRDEna)
	assert.Check(t, !f.Has(FlagCurrRDEna))
}

func TestHasHandshake(t *testing.T) {
	var f Flags
	assert.Check(t, !f.HasHandshake())
	f = f.Set(FlagAcceptProxy)
	assert.Check(t, f.HasHandshake())
	f = f.Clear(FlagAcceptProxy)
	assert.Check(t, !f.HasHandshake())
}
