package main

const (
	homeFlag  = "home"
	forceFlag = "force"

	stakerPkFlag      = "staker-pk"
	fpPksFlag         = "finality-provider-pks"
	stakingTimeFlag   = "staking-time"
	stakingAmountFlag = "staking-amount"
	utxosFileFlag     = "utxos-file"
	feeRateFlag       = "fee-rate"
	changeAddressFlag = "change-address"
)
