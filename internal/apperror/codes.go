package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Auction errors
const (
	CodeAlreadyInitialized Code = "ALREADY_INITIALIZED"
	CodeAuctionNotFound    Code = "AUCTION_NOT_FOUND"
	CodeAuctionEnded       Code = "AUCTION_ENDED"
	CodeAuctionNotYetEnded Code = "AUCTION_NOT_YET_ENDED"
	CodeAlreadyEnded       Code = "ALREADY_ENDED"
	CodeBidTooLow          Code = "BID_TOO_LOW"
	CodeInvalidBidValue    Code = "INVALID_BID_VALUE"
	CodeNotSeller          Code = "NOT_SELLER"
	CodeNothingToWithdraw  Code = "NOTHING_TO_WITHDRAW"
)

// Registry errors
const (
	CodeNotOwner              Code = "NOT_OWNER"
	CodeRegistryNotDeployed   Code = "REGISTRY_NOT_DEPLOYED"
	CodeRegistryDeployed      Code = "REGISTRY_ALREADY_DEPLOYED"
	CodeInvalidImplementation Code = "INVALID_IMPLEMENTATION"
)

// Settlement errors (asset custody and payment ledger)
const (
	CodeTransferFailed  Code = "TRANSFER_FAILED"
	CodeTokenNotFound   Code = "TOKEN_NOT_FOUND"
	CodeTokenExists     Code = "TOKEN_EXISTS"
	CodeNotAuthorized   Code = "NOT_AUTHORIZED"
	CodeStoreError      Code = "STORE_ERROR"
	CodeCollectionUnset Code = "COLLECTION_NOT_FOUND"
)

// Oracle errors
const (
	CodeInvalidPriceFeed         Code = "INVALID_PRICE_FEED"
	CodeStalePrice               Code = "STALE_PRICE"
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeContractCallFailed       Code = "CONTRACT_CALL_FAILED"
	CodeTickerFetchFailed        Code = "TICKER_FETCH_FAILED"

	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)

// WebSocket errors
const (
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeWebSocketSendError       Code = "WEBSOCKET_SEND_ERROR"
)
