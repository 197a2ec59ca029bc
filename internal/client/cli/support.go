package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/auctionchat/internal/client/api"
	"github.com/dmitrijs2005/auctionchat/internal/filex"
)

func (a *App) FAQ(ctx context.Context, _ []string) error {
	items, err := a.api.FAQ(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		printlnFn("No FAQ entries")
		return nil
	}
	for i, it := range items {
		printlnFn(fmt.Sprintf("%d. %s\n   %s", i+1, it.Question, it.Answer))
	}
	return nil
}

// Ticket collects a support request interactively and submits it.
func (a *App) Ticket(ctx context.Context, _ []string) error {
	var t api.Ticket
	var err error

	if t.Subject, err = GetSimpleText(a.reader, "Subject", a.out); err != nil {
		return err
	}
	if t.Message, err = GetMultiline(a.reader, "Describe the problem", a.out); err != nil {
		return err
	}
	if t.Email, err = GetSimpleText(a.reader, "Contact email (optional)", a.out); err != nil {
		return err
	}
	if t.Category, err = GetSimpleText(a.reader, "Category: general, payment, vehicle, account (optional)", a.out); err != nil {
		return err
	}

	if s, err := a.session(); err == nil {
		t.VehicleID = s.ID()
	}

	path, err := GetSimpleText(a.reader, "Attachment path (optional)", a.out)
	if err != nil {
		return err
	}
	if path != "" {
		info, err := filex.Describe(path)
		if err != nil {
			return err
		}
		f, err := os.Open(info.Path)
		if err != nil {
			return err
		}
		defer f.Close()
		t.Attachment = &api.Attachment{Name: info.Name, MIMEType: info.MIMEType, Body: f}
	}

	rec, err := a.api.SubmitTicket(ctx, t)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Ticket %s submitted (%s)", rec.ID, rec.Status))
	return nil
}
