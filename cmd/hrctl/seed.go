package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/iliyamo/hrpass/internal/model"
	"github.com/iliyamo/hrpass/internal/repository"
)

// seedFile is the layout of seed.yaml.
type seedFile struct {
	Admins []struct {
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
	} `yaml:"admins"`
	Requisitions []struct {
		Title           string   `yaml:"title"`
		Department      string   `yaml:"department"`
		Location        string   `yaml:"location"`
		Level           string   `yaml:"level"`
		SalaryRange     string   `yaml:"salary_range"`
		JDURL           string   `yaml:"jd_url"`
		Status          string   `yaml:"status"`
		HiringManagerID string   `yaml:"hiring_manager_id"`
		AgencyIDs       []string `yaml:"agency_ids"`
		Candidates      []struct {
			Name   string `yaml:"name"`
			Email  string `yaml:"email"`
			Phone  string `yaml:"phone"`
			Source string `yaml:"source"`
		} `yaml:"candidates"`
	} `yaml:"requisitions"`
}

func parseSeed(r io.Reader) (seedFile, error) {
	var sf seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sf); err != nil && !errors.Is(err, io.EOF) {
		return sf, fmt.Errorf("parse seed: %w", err)
	}
	return sf, nil
}

func seed(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	path := fs.String("f", "seed.yaml", "seed file")
	_ = fs.Parse(args)

	f, err := os.Open(*path)
	if err != nil {
		return err
	}
	defer f.Close()
	sf, err := parseSeed(f)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	db, cfg, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	auth := newAdminAuth(db, cfg)
	for _, a := range sf.Admins {
		secret, url, err := auth.CreateAdmin(ctx, a.Email, a.Password)
		if errors.Is(err, repository.ErrEmailExists) {
			fmt.Printf("admin %s exists, skipped\n", a.Email)
			continue
		}
		if err != nil {
			return fmt.Errorf("admin %s: %w", a.Email, err)
		}
		fmt.Printf("admin %s\n  TOTP secret: %s\n  otpauth URL: %s\n", a.Email, secret, url)
	}

	rrs := repository.NewRecruitmentRepo(db)
	cands := repository.NewCandidateRepo(db)
	now := time.Now()
	for _, r := range sf.Requisitions {
		rr := model.RecruitmentRequest{
			ID: uuid.NewString(), Title: r.Title, Department: r.Department, Location: r.Location,
			Level: r.Level, SalaryRange: r.SalaryRange, JDURL: r.JDURL, Status: r.Status,
			HiringManagerID: r.HiringManagerID, AgencyIDs: r.AgencyIDs, CreatedAt: now,
		}
		if rr.Status == "" {
			rr.Status = "open"
		}
		if !model.RRStatuses[rr.Status] {
			return fmt.Errorf("requisition %q: invalid status %q", r.Title, rr.Status)
		}
		if err := rrs.Create(ctx, &rr); err != nil {
			return fmt.Errorf("requisition %q: %w", r.Title, err)
		}
		for _, c := range r.Candidates {
			cand := model.Candidate{
				ID: uuid.NewString(), RRID: rr.ID, Name: c.Name, Email: repository.NormalizeEmail(c.Email),
				Phone: c.Phone, Source: c.Source, CurrentStage: model.CandidateStages[0], CreatedAt: now,
			}
			if err := cands.Create(ctx, &cand); err != nil {
				return fmt.Errorf("candidate %q: %w", c.Name, err)
			}
		}
		fmt.Printf("requisition %s %q (%d candidates)\n", rr.ID, rr.Title, len(r.Candidates))
	}
	return nil
}
