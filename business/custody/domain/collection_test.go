package domain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

var (
	owner    = common.HexToAddress("0x0000000000000000000000000000000000000001")
	spender  = common.HexToAddress("0x0000000000000000000000000000000000000002")
	stranger = common.HexToAddress("0x0000000000000000000000000000000000000003")
)

func TestCollection_TokenURI(t *testing.T) {
	c := Collection{BaseURI: "https://test.com/"}
	assert.Equal(t, "https://test.com/1", c.TokenURI(big.NewInt(1)))

	empty := Collection{}
	assert.Equal(t, "", empty.TokenURI(big.NewInt(1)))
}

func TestToken_CanTransfer(t *testing.T) {
	tok := Token{ID: big.NewInt(1), Owner: owner, Approved: spender}

	assert.True(t, tok.CanTransfer(owner, false))
	assert.True(t, tok.CanTransfer(spender, false))
	assert.False(t, tok.CanTransfer(stranger, false))
	assert.True(t, tok.CanTransfer(stranger, true))
}

func TestToken_TransferClearsApproval(t *testing.T) {
	tok := Token{ID: big.NewInt(1), Owner: owner, Approved: spender}
	tok.Transfer(stranger)

	assert.Equal(t, stranger, tok.Owner)
	assert.Equal(t, common.Address{}, tok.Approved)
}
