package market

// tokenInfo describes one whitelisted symbol: its on-chain address (metadata
// only — symbols are the identifiers throughout the core), the spot-endpoint
// id, and a hard-coded reference price used to seed mock snapshots when every
// upstream fails.
type tokenInfo struct {
	Symbol    string
	Address   string
	SpotID    string
	RefPrice  float64
}

// baseTokens is the supported-symbol whitelist for the Base ecosystem.
var baseTokens = map[string]tokenInfo{
	"ETH":     {Symbol: "ETH", Address: "0x4200000000000000000000000000000000000006", SpotID: "ethereum", RefPrice: 3000},
	"WETH":    {Symbol: "WETH", Address: "0x4200000000000000000000000000000000000006", SpotID: "weth", RefPrice: 3000},
	"USDC":    {Symbol: "USDC", Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", SpotID: "usd-coin", RefPrice: 1},
	"CBBTC":   {Symbol: "CBBTC", Address: "0xcbB7C0000aB88B473b1f5aFd9ef808440eed33Bf", SpotID: "coinbase-wrapped-btc", RefPrice: 65000},
	"DEGEN":   {Symbol: "DEGEN", Address: "0x4ed4E862860beD51a9570b96d89aF5E1B0Efefed", SpotID: "degen-base", RefPrice: 0.004},
	"TOSHI":   {Symbol: "TOSHI", Address: "0xAC1Bd2486aAf3B5C0fc3Fd868558b082a531B2B4", SpotID: "toshi", RefPrice: 0.0001},
	"BRETT":   {Symbol: "BRETT", Address: "0x532f27101965dd16442E59d40670FaF5eBB142E4", SpotID: "based-brett", RefPrice: 0.05},
	"AERO":    {Symbol: "AERO", Address: "0x940181a94A35A4569E4529A3CDfB74e38FD98631", SpotID: "aerodrome-finance", RefPrice: 1.2},
	"VIRTUAL": {Symbol: "VIRTUAL", Address: "0x0b3e328455c4059EEb9e3f84b5543F74E24e7E1b", SpotID: "virtual-protocol", RefPrice: 1.8},
	"MORPHO":  {Symbol: "MORPHO", Address: "0xBAa5CC21fd487B8Fcc2F632f3F4E8D37262a0842", SpotID: "morpho", RefPrice: 2.5},
}
