// Command admin is the operator CLI: it migrates the schema, registers a
// printer, and can fire a test label at it to verify the wiring end to end.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"etiqueta/internal/config"
	"etiqueta/internal/database"
	"etiqueta/internal/printing"
	"etiqueta/internal/store"
)

const testLabelZPL = "^XA\n^FO20,20^AAN,24^FB360,5,0,L,0^FDetiqueta test label^FS\n^XZ"

func main() {
	var (
		name      = flag.String("name", "", "printer name (required)")
		ip        = flag.String("ip", "", "printer IP address (required)")
		port      = flag.Int("port", database.DefaultPrinterPort, "printer TCP port")
		testPrint = flag.Bool("test-print", false, "enqueue a test label after registering")
		dbHost    = flag.String("db-host", "", "database host (optional, defaults to DATABASE_HOST)")
		dbPort    = flag.Int("db-port", 0, "database port (optional, defaults to DATABASE_PORT)")
		dbName    = flag.String("db-name", "", "database name (optional, defaults to POSTGRES_DB)")
		dbUser    = flag.String("db-user", "", "database user (optional, defaults to POSTGRES_USER)")
		dbPass    = flag.String("db-password", "", "database password (optional, defaults to POSTGRES_PASSWORD)")
		sslMode   = flag.String("db-sslmode", "", "database sslmode (optional, defaults to DATABASE_SSLMODE)")
	)
	flag.Parse()

	printerName := strings.TrimSpace(*name)
	printerIP := strings.TrimSpace(*ip)
	if printerName == "" {
		log.Fatal("missing required flag: --name")
	}
	if printerIP == "" {
		log.Fatal("missing required flag: --ip")
	}

	dbCfg, err := loadDatabaseConfig(*dbHost, *dbPort, *dbName, *dbUser, *dbPass, *sslMode)
	if err != nil {
		log.Fatalf("load database config: %v", err)
	}

	db, err := database.InitDatabase(dbCfg)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	ctx := context.Background()
	printerStore := store.NewPrinterStore(db)

	printer := &database.Printer{Name: printerName, IP: printerIP, Port: *port}
	if err := printerStore.Create(ctx, printer); err != nil {
		log.Fatalf("create printer: %v", err)
	}
	fmt.Printf("registered printer %q (id=%d) at %s:%d\n", printer.Name, printer.ID, printer.IP, printer.Port)

	if online := printing.Probe(printer.IP, printer.Port, 3*time.Second); online {
		fmt.Println("printer is reachable")
	} else {
		fmt.Println("warning: printer is not reachable right now")
	}

	if !*testPrint {
		return
	}

	submission := printing.NewSubmissionService(store.NewTemplateStore(db), store.NewJobStore(db), nil)
	job, err := submission.Submit(ctx, printing.SubmitRequest{
		RawZPL:      testLabelZPL,
		PrinterID:   &printer.ID,
		Quantity:    1,
		TestPrint:   true,
		LabelWidth:  400,
		LabelHeight: 300,
	})
	if err != nil {
		log.Fatalf("enqueue test label: %v", err)
	}
	fmt.Printf("test label enqueued as job %d; a running agent will pick it up\n", job.ID)
}

// loadDatabaseConfig starts from the environment-derived config and applies
// any explicit flag overrides.
func loadDatabaseConfig(host string, port int, name, user, password, sslMode string) (config.DatabaseConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.DatabaseConfig{}, err
	}

	dbCfg := cfg.Database
	if strings.TrimSpace(host) != "" {
		dbCfg.Host = strings.TrimSpace(host)
	}
	if port > 0 {
		dbCfg.Port = port
	}
	if strings.TrimSpace(name) != "" {
		dbCfg.Name = strings.TrimSpace(name)
	}
	if strings.TrimSpace(user) != "" {
		dbCfg.User = strings.TrimSpace(user)
	}
	if strings.TrimSpace(password) != "" {
		dbCfg.Password = password
	}
	if strings.TrimSpace(sslMode) != "" {
		dbCfg.SSLMode = strings.TrimSpace(sslMode)
	}

	return dbCfg, nil
}
