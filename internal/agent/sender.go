package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"etiqueta/internal/database"
	"etiqueta/internal/metrics"
)

// errJobCancelled signals that a cancellation was observed between copies.
var errJobCancelled = errors.New("job cancelled")

// sendJob streams the job's command to the printer quantity times over one
// connection, so the printer receives quantity independent ^XA…^XZ sequences.
// Every write carries a deadline: a half-open connection must not stall the
// dispatch loop indefinitely. Between copies the store is re-checked for a
// user cancellation; an already-started write is allowed to finish.
func (d *Dispatcher) sendJob(ctx context.Context, printer *database.Printer, job database.PrintJob) error {
	if job.Command == "" {
		return errors.New("job has no command payload")
	}

	port := printer.Port
	if port <= 0 {
		port = database.DefaultPrinterPort
	}
	address := net.JoinHostPort(printer.IP, strconv.Itoa(port))

	conn, err := net.DialTimeout("tcp", address, d.socketTimeout)
	if err != nil {
		return fmt.Errorf("connect to printer %s: %w", address, err)
	}
	defer conn.Close()

	quantity := job.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	payload := []byte(job.Command)
	for copyIndex := 0; copyIndex < quantity; copyIndex++ {
		if copyIndex > 0 {
			cancelled, checkErr := d.jobCancelled(ctx, job.ID)
			if checkErr != nil {
				return fmt.Errorf("re-check job %d before copy %d: %w", job.ID, copyIndex+1, checkErr)
			}
			if cancelled {
				return errJobCancelled
			}
		}

		if err := conn.SetWriteDeadline(time.Now().Add(d.socketTimeout)); err != nil {
			return fmt.Errorf("set write deadline for %s: %w", address, err)
		}
		n, err := conn.Write(payload)
		metrics.AddBytesSent(n)
		if err != nil {
			return fmt.Errorf("send label %d/%d to %s: %w", copyIndex+1, quantity, address, err)
		}
	}

	return nil
}

func (d *Dispatcher) jobCancelled(ctx context.Context, id uint) (bool, error) {
	current, err := d.jobs.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return current.Status == database.JobStatusCancelled, nil
}
