// Package testenv starts the containers the integration tests run against: a
// PostGIS database for the datastore and a GeoServer with its demo data, on a
// shared network so GeoServer can reach PostGIS by alias.
//
// Settings come from the environment, usually loaded from a .env file.
package testenv

import (
	"context"
	"fmt"
	"net"
	"os"
	"testing"
	"time"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5"
	"github.com/localnerve/layersync/internal/config"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	postgisAlias   = "postgis"
	geoserverAlias = "geoserver"
	authzAlias     = "authorizer"
)

// Containers are the running test containers.
type Containers struct {
	Network    *testcontainers.DockerNetwork
	PostGIS    testcontainers.Container
	GeoServer  testcontainers.Container
	Authorizer testcontainers.Container

	// Host side addresses, set once the containers are up.
	PostGISHost       string
	PostGISPort       string
	GeoServerLocation string
	AuthzURL          string
}

// Terminate stops everything that was started, in reverse order.
func (tc *Containers) Terminate(t *testing.T) {
	ctx := context.Background()
	if tc.Authorizer != nil {
		if err := tc.Authorizer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate Authorizer: %v", err)
		}
	}
	if tc.GeoServer != nil {
		if err := tc.GeoServer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate GeoServer: %v", err)
		}
	}
	if tc.PostGIS != nil {
		if err := tc.PostGIS.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate PostGIS: %v", err)
		}
	}
	if tc.Network != nil {
		if err := tc.Network.Remove(ctx); err != nil {
			logMessage(t, "Failed to remove network: %v", err)
		}
	}
}

// Config returns a configuration pointing at the containers, with the local
// registry in an sqlite file under dir.
func (tc *Containers) Config(dir string) *config.Config {
	return &config.Config{
		LogLevel:                "debug",
		LogFormat:               "text",
		DBType:                  "sqlite",
		DBDatabase:              dir + "/registry.db",
		DBConnectionLimit:       2,
		GeoServerLocation:       tc.GeoServerLocation,
		GeoServerPublicLocation: tc.GeoServerLocation,
		GeoServerUser:           getEnv("GEOSERVER_ADMIN_USER", "admin"),
		GeoServerPassword:       getEnv("GEOSERVER_ADMIN_PASSWORD", "geoserver"),
		GeoServerWorkspace:      getEnv("GEOSERVER_WORKSPACE", "sf"),
		GeoServerDatastore:      "datastore",
		GeoServerTimeout:        60 * time.Second,
		WCSRetryDelay:           time.Second,
		// GeoServer reaches the database over the container network
		DatastoreHost:     postgisAlias,
		DatastorePort:     "5432",
		DatastoreName:     getEnv("POSTGIS_DB", "datastore"),
		DatastoreUser:     getEnv("POSTGIS_USER", "geo"),
		DatastorePassword: getEnv("POSTGIS_PASSWORD", "geo"),
		DatastoreEngine:   "postgis",
		AuthzURL:          tc.AuthzURL,
		AuthzClientID:     os.Getenv("AUTHZ_CLIENT_ID"),
	}
}

// HostConnString is the pgx connection string for the database as seen from
// the test process.
func (tc *Containers) HostConnString() string {
	return fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s sslmode=disable",
		tc.PostGISHost, tc.PostGISPort,
		getEnv("POSTGIS_DB", "datastore"), getEnv("POSTGIS_USER", "geo"), getEnv("POSTGIS_PASSWORD", "geo"))
}

// Start brings up the network, PostGIS, GeoServer and, when AUTHZ_IMAGE is
// set, the authorizer. With a nil t failures exit the process.
func Start(t *testing.T) (*Containers, error) {
	ctx := context.Background()
	tc := &Containers{}

	nw, err := network.New(ctx)
	if err != nil {
		exitWithError(t, err, "Failed to create network")
		return nil, err
	}
	tc.Network = nw
	networkName := nw.Name

	// PostGIS
	pgPort, _ := nat.NewPort("tcp", "5432")
	pgImage := getEnv("POSTGIS_IMAGE", "postgis/postgis:16-3.4")
	reportImage(ctx, t, pgImage)
	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        pgImage,
			ExposedPorts: []string{string(pgPort)},
			Env: map[string]string{
				"POSTGRES_DB":       getEnv("POSTGIS_DB", "datastore"),
				"POSTGRES_USER":     getEnv("POSTGIS_USER", "geo"),
				"POSTGRES_PASSWORD": getEnv("POSTGIS_PASSWORD", "geo"),
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(90 * time.Second),
			Networks:       []string{networkName},
			NetworkAliases: map[string][]string{networkName: {postgisAlias}},
		},
		Started: true,
	})
	if err != nil {
		tc.Terminate(t)
		exitWithError(t, err, "Failed to start PostGIS")
		return nil, err
	}
	tc.PostGIS = pg
	tc.PostGISHost, _ = pg.Host(ctx)
	mapped, _ := pg.MappedPort(ctx, pgPort)
	tc.PostGISPort = mapped.Port()

	if err := initPostGIS(ctx, tc.HostConnString()); err != nil {
		tc.Terminate(t)
		exitWithError(t, err, "Failed to initialize PostGIS")
		return nil, err
	}
	logMessage(t, "DATASTORE_DB_HOST=%s DATASTORE_DB_PORT=%s", tc.PostGISHost, tc.PostGISPort)

	// GeoServer, with the demo workspaces
	gsPort, _ := nat.NewPort("tcp", "8080")
	gsImage := getEnv("GEOSERVER_IMAGE", "docker.osgeo.org/geoserver:2.25.2")
	reportImage(ctx, t, gsImage)
	gs, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        gsImage,
			ExposedPorts: []string{string(gsPort)},
			Env: map[string]string{
				"SKIP_DEMO_DATA":           "false",
				"GEOSERVER_ADMIN_USER":     getEnv("GEOSERVER_ADMIN_USER", "admin"),
				"GEOSERVER_ADMIN_PASSWORD": getEnv("GEOSERVER_ADMIN_PASSWORD", "geoserver"),
			},
			WaitingFor: wait.ForHTTP("/geoserver/web/").WithPort(gsPort).
				WithStartupTimeout(4 * time.Minute),
			Networks:       []string{networkName},
			NetworkAliases: map[string][]string{networkName: {geoserverAlias}},
		},
		Started: true,
	})
	if err != nil {
		tc.Terminate(t)
		exitWithError(t, err, "Failed to start GeoServer")
		return nil, err
	}
	tc.GeoServer = gs
	gsHost, _ := gs.Host(ctx)
	gsMapped, _ := gs.MappedPort(ctx, gsPort)
	tc.GeoServerLocation = fmt.Sprintf("http://%s/geoserver/", net.JoinHostPort(gsHost, gsMapped.Port()))
	logMessage(t, "GEOSERVER_LOCATION=%s", tc.GeoServerLocation)

	// Authorizer, optional
	if authzImage := os.Getenv("AUTHZ_IMAGE"); authzImage != "" {
		authzPortNumber := getEnv("AUTHZ_PORT", "8080")
		authzPort, err := nat.NewPort("tcp", authzPortNumber)
		if err != nil {
			tc.Terminate(t)
			exitWithError(t, err, "Failed to create Authorizer port")
			return nil, err
		}
		authz, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        authzImage,
				ExposedPorts: []string{string(authzPort)},
				Env: map[string]string{
					"ENV":           "production",
					"CLIENT_ID":     os.Getenv("AUTHZ_CLIENT_ID"),
					"PORT":          authzPortNumber,
					"DATABASE_TYPE": "postgres",
					"DATABASE_URL": fmt.Sprintf("postgres://%s:%s@%s:5432/%s",
						getEnv("POSTGIS_USER", "geo"), getEnv("POSTGIS_PASSWORD", "geo"), postgisAlias, getEnv("POSTGIS_DB", "datastore")),
					"ADMIN_SECRET":  os.Getenv("AUTHZ_ADMIN_SECRET"),
					"ROLES":         "admin,user",
					"DEFAULT_ROLES": "user",
				},
				WaitingFor:     wait.ForLog("Authorizer running at PORT:").WithStartupTimeout(30 * time.Second),
				Networks:       []string{networkName},
				NetworkAliases: map[string][]string{networkName: {authzAlias}},
			},
			Started: true,
		})
		if err != nil {
			tc.Terminate(t)
			exitWithError(t, err, "Failed to start Authorizer")
			return nil, err
		}
		tc.Authorizer = authz
		host, _ := authz.Host(ctx)
		port, _ := authz.MappedPort(ctx, authzPort)
		tc.AuthzURL = fmt.Sprintf("http://%s", net.JoinHostPort(host, port.Port()))
		logMessage(t, "AUTHZ_URL=%s", tc.AuthzURL)
	}

	logMessage(t, "Test containers started successfully")
	return tc, nil
}

// initPostGIS waits for the database to take connections and makes sure the
// extension is installed.
func initPostGIS(ctx context.Context, connString string) error {
	var conn *pgx.Conn
	var err error
	for i := 0; i < 30; i++ {
		conn, err = pgx.Connect(ctx, connString)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		return fmt.Errorf("database not ready after 30 seconds: %w", err)
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS postgis")
	return err
}

// reportImage notes whether image has to be pulled, which can take minutes.
func reportImage(ctx context.Context, t *testing.T, name string) {
	ok, err := imageExists(ctx, name)
	switch {
	case err != nil:
		logMessage(t, "Could not list local images: %v", err)
	case ok:
		logMessage(t, "Image %s exists, reusing...", name)
	default:
		logMessage(t, "Image %s does not exist, pulling...", name)
	}
}

func imageExists(ctx context.Context, imageName string) (bool, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return false, err
	}
	defer cli.Close()

	images, err := cli.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return false, err
	}

	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == imageName {
				return true, nil
			}
		}
	}
	return false, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func exitWithError(t *testing.T, err error, msg string) {
	if t != nil {
		t.Fatalf(msg+": %v", err)
	} else {
		fmt.Printf(msg+": %v\n", err)
		os.Exit(1)
	}
}

func logMessage(t *testing.T, format string, args ...any) {
	if t != nil {
		t.Logf(format, args...)
	} else {
		fmt.Printf(format+"\n", args...)
	}
}
