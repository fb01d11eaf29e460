package main

import "hyperspace/internal/hyperspace"

func main() {
	hyperspace.Main()
}
