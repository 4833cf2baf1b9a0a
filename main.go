package main

import "heistctf/internal/server"

func main() {
	server.StartGinServer()
}
