package params

const (
	// ParamsKeyPriceThreshold stores the rebalancing price deviation threshold.
	ParamsKeyPriceThreshold = "rebalancing/priceThreshold"
	// ParamsKeyAdmin stores the protocol admin address.
	ParamsKeyAdmin = "system/admin"
	// ParamsKeyGovernance stores the governance contract address.
	ParamsKeyGovernance = "system/governance"
	// ParamsKeyPauses stores the module pause configuration.
	ParamsKeyPauses = "system/pauses"
)
