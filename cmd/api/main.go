package main

import (
	"go.uber.org/fx"

	"github.com/comanda-labs/comanda/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
