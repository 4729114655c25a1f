package main

import "github.com/ArthurHtr/backtest-engine/internal/cli"

func main() {
	cli.Execute()
}
