// Package di contains dependency injection tokens for the oracle context.
package di

import (
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/nft-auction/business/oracle/app"
	"github.com/fd1az/nft-auction/internal/di"
)

// Public service tokens - exposed to other modules
var (
	OracleService = di.NewToken[*app.OracleService]("oracle.OracleService")
)

// Private dependency tokens - internal to oracle module
var (
	EthClient = di.NewToken[*ethclient.Client]("oracle:ethClient")
)

func GetOracleService(c di.ServiceRegistry) *app.OracleService {
	return di.GetToken(c, OracleService)
}

func GetEthClient(c di.ServiceRegistry) *ethclient.Client {
	return di.GetToken(c, EthClient)
}
