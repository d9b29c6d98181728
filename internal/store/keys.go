package store

import "fmt"

// Key layout. Every persisted entity lives under one of these keys; keeping
// the constructors in one place keeps the layout greppable.
//
//	round:{id}                      round record (JSON)
//	round:number:{n}                round number → id
//	round:{id}:participants         set of wallets
//	round:{id}:participant:{wallet} participant record (JSON)
//	round:{id}:logs:{wallet}        hash: unix-milli → trade log (JSON)
//	round:{id}:leaderboard          sorted set: wallet scored by percent P&L
//	rounds:active                   set of joinable (waiting) round ids
//	rounds:running                  set of active round ids
//	rounds:finished                 set of terminal round ids
//	round:counter                   monotonic round number
//	strategy:{id}                   strategy record (JSON)
//	user:strategies:{wallet}        set of strategy ids owned by wallet
//	strategy:{id}:licenses          set of licensee wallets
//	license:{wallet}:{roundId}      license record (JSON)
//	strategy:counter                monotonic strategy id

const (
	RoundsActiveKey    = "rounds:active"
	RoundsRunningKey   = "rounds:running"
	RoundsFinishedKey  = "rounds:finished"
	RoundCounterKey    = "round:counter"
	StrategyCounterKey = "strategy:counter"
)

func RoundKey(id string) string             { return "round:" + id }
func RoundNumberKey(n int64) string         { return fmt.Sprintf("round:number:%d", n) }
func RoundParticipantsKey(id string) string { return "round:" + id + ":participants" }

func ParticipantKey(id, wallet string) string {
	return "round:" + id + ":participant:" + wallet
}

func LogsKey(id, wallet string) string       { return "round:" + id + ":logs:" + wallet }
func LeaderboardKey(id string) string        { return "round:" + id + ":leaderboard" }
func StrategyKey(id int64) string            { return fmt.Sprintf("strategy:%d", id) }
func UserStrategiesKey(wallet string) string { return "user:strategies:" + wallet }
func StrategyLicensesKey(id int64) string    { return fmt.Sprintf("strategy:%d:licenses", id) }

func LicenseKey(wallet, roundID string) string {
	return "license:" + wallet + ":" + roundID
}
