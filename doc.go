/*
Package zonerules models how a time zone's offset from UTC changes over time and
answers, for any instant or local date-time, which offset applies.

A zone is described by its rules: a history of transitions followed by annual
rules that project the pattern forever. The engine in pkg/rules resolves an
instant to exactly one offset, and classifies a local date-time as Normal (one
valid offset), Gap (skipped by a spring-forward) or Overlap (repeated by a
fall-back).

# Identity

Zones are named by identifiers that the Service resolves through a registry of
rules providers, one per group:

	UTC                          fixed, zero offset
	UTC+05:30                    fixed offset
	Europe/Paris                 TZDB group, newest version at each lookup
	TZDB:Europe/Paris#2019c      explicit group, pinned version

# Usage

Rules are served from a Loam repository by default, or from any provider
injected with WithProvider:

	package main

	import (
		"context"
		"fmt"
		"log"
		"time"

		"github.com/aretw0/zonerules"
		"github.com/aretw0/zonerules/pkg/domain"
	)

	func main() {
		svc, err := zonerules.New("./zoneinfo")
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		off, err := svc.Offset(ctx, "Europe/Paris", time.Now())
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("Paris is at", off)

		local := domain.MustLocalDateTime(2019, time.March, 31, 2, 30)
		info, err := svc.Resolve(ctx, "Europe/Paris", local)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(info.Kind(), info.ValidOffsets())
	}
*/
package zonerules
