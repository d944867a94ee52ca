package main

import "jornada/internal/app/server"

func main() {
	server.Run()
}
