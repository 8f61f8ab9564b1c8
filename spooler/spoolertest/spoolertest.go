// Package spoolertest provides an in-memory spooler for tests.
package spoolertest

import (
	"fmt"
	"sync"

	"github.com/nixxel-company-limited/escpos-spool-bridge/spooler"
)

// Job is a submission recorded by Spooler
type Job struct {
	Printer string
	Data    []byte
	Options spooler.JobOptions
}

// Spooler is a spooler.Spooler that keeps its printer list and submitted jobs in memory
type Spooler struct {
	mu       sync.Mutex
	names    []string
	jobs     []Job
	listErr  error
	printErr error
	lookups  int
}

// New creates a spooler reporting the given printer names
func New(names ...string) *Spooler {
	return &Spooler{names: append([]string(nil), names...)}
}

// SetPrinters replaces the registered printer names
func (s *Spooler) SetPrinters(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append([]string(nil), names...)
}

// FailList makes Printers and Lookup return err
func (s *Spooler) FailList(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listErr = err
}

// FailPrint makes every submission return err. Failed submissions are not recorded.
func (s *Spooler) FailPrint(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.printErr = err
}

// Jobs returns a copy of the recorded submissions
func (s *Spooler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Job(nil), s.jobs...)
}

// Lookups returns how many times Lookup was called
func (s *Spooler) Lookups() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups
}

func (s *Spooler) Printers() ([]spooler.Printer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listErr != nil {
		return nil, s.listErr
	}

	printers := make([]spooler.Printer, 0, len(s.names))
	for _, name := range s.names {
		printers = append(printers, &printer{name: name, spooler: s})
	}
	return printers, nil
}

func (s *Spooler) Lookup(name string) (spooler.Printer, error) {
	s.mu.Lock()
	s.lookups++
	s.mu.Unlock()

	printers, err := s.Printers()
	if err != nil {
		return nil, err
	}
	for _, p := range printers {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", spooler.ErrNotFound, name)
}

type printer struct {
	name    string
	spooler *Spooler
}

func (p *printer) Name() string {
	return p.name
}

func (p *printer) Print(data []byte, opts spooler.JobOptions) error {
	p.spooler.mu.Lock()
	defer p.spooler.mu.Unlock()

	if p.spooler.printErr != nil {
		return p.spooler.printErr
	}

	p.spooler.jobs = append(p.spooler.jobs, Job{
		Printer: p.name,
		Data:    append([]byte(nil), data...),
		Options: opts,
	})
	return nil
}
