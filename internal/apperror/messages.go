package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	CodeConfigurationError: "Configuration error",

	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Auction
	CodeAlreadyInitialized: "Auction already initialized",
	CodeAuctionNotFound:    "Auction not found",
	CodeAuctionEnded:       "Auction has ended",
	CodeAuctionNotYetEnded: "Auction has not ended yet",
	CodeAlreadyEnded:       "Auction already finalized",
	CodeBidTooLow:          "Bid must exceed the current highest bid",
	CodeInvalidBidValue:    "Attached value does not match the bid",
	CodeNotSeller:          "Caller is not the seller",
	CodeNothingToWithdraw:  "No pending funds to withdraw",

	// Registry
	CodeNotOwner:              "Ownable: caller is not the owner",
	CodeRegistryNotDeployed:   "Auction registry not deployed",
	CodeRegistryDeployed:      "Auction registry already deployed",
	CodeInvalidImplementation: "Implementation is not registered",

	// Settlement
	CodeTransferFailed:  "Transfer failed",
	CodeTokenNotFound:   "Token does not exist",
	CodeTokenExists:     "Token already minted",
	CodeNotAuthorized:   "Caller is not token owner or approved",
	CodeStoreError:      "Ledger store error",
	CodeCollectionUnset: "Collection not found",

	// Oracle
	CodeInvalidPriceFeed:         "Invalid price feed",
	CodeStalePrice:               "Price data is stale",
	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeContractCallFailed:       "Smart contract call failed",
	CodeTickerFetchFailed:        "Failed to fetch ticker price",
	CodeCircuitOpen:              "Circuit breaker is open",

	// WebSocket
	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeWebSocketSendError:       "Failed to send WebSocket message",
}
