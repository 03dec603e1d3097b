package main

import (
	"log"

	relay "rewardhub/services/oracle-relayd"
)

func main() {
	if err := relay.Main(); err != nil {
		log.Fatalf("oracle-relayd: %v", err)
	}
}
