package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRust_Valid(t *testing.T) {
	src := []byte(`pub fn withdraw(ctx: Context<Withdraw>, amount: u64) -> Result<()> {
    let vault = &mut ctx.accounts.vault;
    vault.balance -= amount;
    Ok(())
}
`)
	assert.NoError(t, ValidateRust(context.Background(), src, "lib.rs"))
}

func TestValidateRust_Broken(t *testing.T) {
	src := []byte(`fn main() {
    let x = ;
}
`)
	err := ValidateRust(context.Background(), src, "lib.rs")
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "lib.rs", pe.File)
	assert.Greater(t, pe.Line, 0)
	assert.Greater(t, pe.Column, 0)
	assert.Contains(t, pe.Message, "syntax error")
	assert.ErrorIs(t, err, ErrParse)
}

func TestValidateRust_Empty(t *testing.T) {
	assert.NoError(t, ValidateRust(context.Background(), []byte{}, "lib.rs"))
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", snippet("short"))
	long := "0123456789012345678901234567890123456789abc"
	assert.Equal(t, long[:40]+"...", snippet(long))
}
