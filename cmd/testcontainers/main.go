package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/localnerve/layersync/internal/logging"
	"github.com/localnerve/layersync/internal/testenv"
)

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "h", false, "show help")
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	flag.Parse()

	usage := `
Run the layersync test containers (PostGIS, GeoServer and optionally the
authorizer) with the environment variables from the .env file, until
interrupted.

Usage:

testcontainers [-h] [-f ENV_FILE_PATH]

ENV_FILE_PATH: path to the .env file

example
  testcontainers -f /path/to/something/.env
`
	if showHelp {
		fmt.Println(usage)
		return
	}

	log := logging.Setup("info", "text")
	if envFilename != "" {
		log.Infof("Loading environment variables from %s", envFilename)
		if err := godotenv.Load(envFilename); err != nil {
			log.Fatalf("Failed to load environment variables: %v", err)
		}
	} else {
		log.Info("No environment file specified, using current environment variables")
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	started := make(chan *testenv.Containers, 1)
	go func() {
		tc, _ := testenv.Start(nil)
		started <- tc
	}()

	var containers *testenv.Containers
	select {
	case containers = <-started:
		log.Info("Containers running, interrupt to stop")
		sig := <-sigs
		log.Infof("Received signal: %v, terminating test containers...", sig)
	case sig := <-sigs:
		log.Infof("Received signal: %v before startup finished, waiting to terminate...", sig)
		containers = <-started
	}
	if containers != nil {
		containers.Terminate(nil)
	}
}
