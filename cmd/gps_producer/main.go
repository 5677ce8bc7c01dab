package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/mpu9250dmp/internal/config"
	"github.com/relabs-tech/mpu9250dmp/internal/gpsfeed"
)

func main() {
	configPath := flag.String("config", "./mpu9250_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting GPS companion producer (NMEA -> MQTT)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := gpsfeed.Run(config.Get()); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
