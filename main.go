package main

import "github.com/tally-ledger/backend/internal/cli"

//	@title						Tally
//	@description				Personal bookkeeping with categories, expenses and spending alerts
//	@BasePath					/
//	@securityDefinitions.apikey	Bearer
//	@in							header
//	@name						Authorization

func main() {
	cli.Execute()
}
