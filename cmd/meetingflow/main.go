package main

import (
	"log"
	"os"
)

func main() {
	log.SetPrefix("meetingflow ")
	log.SetFlags(log.LstdFlags | log.LUTC)

	if err := newRootCmd().Execute(); err != nil {
		log.Printf("error: %v", err)
		os.Exit(1)
	}
}
