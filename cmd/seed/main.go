package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medoc-health/opd-token-allocation/internal/allocation"
	"github.com/medoc-health/opd-token-allocation/internal/db"
)

// Seeds a day of OPD schedules into Postgres for the durable backend:
// a handful of doctors, each with consecutive hour-long slots.
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	date := os.Getenv("SEED_DATE")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedSchedules(context.Background(), pool, date, 20); err != nil {
		log.Fatalf("seed schedules: %v", err)
	}

	log.Println("seed complete")
}

func seedSchedules(ctx context.Context, pool *pgxpool.Pool, date string, doctorCount int) error {
	log.Printf("seeding %d doctors for %s", doctorCount, date)

	specialties := []string{
		"Cardiology",
		"Orthopedics",
		"General Medicine",
		"Dermatology",
		"Pediatrics",
		"ENT",
		"Neurology",
		"Ophthalmology",
	}

	repo := allocation.NewPgSlotRepository(pool)

	for i := 0; i < doctorCount; i++ {
		doctorID := fmt.Sprintf("DOC%03d", i+1)
		specialty := specialties[gofakeit.Number(0, len(specialties)-1)]
		doctorName := fmt.Sprintf("Dr. %s (%s)", gofakeit.LastName(), specialty)

		// Morning block 09:00-12:00, afternoon block 14:00-17:00.
		startHours := []int{9, 10, 11, 14, 15, 16}
		capacity := gofakeit.Number(4, 8)

		for _, hour := range startHours {
			start := fmt.Sprintf("%02d:00", hour)
			end := fmt.Sprintf("%02d:00", hour+allocation.DefaultSlotMinutes/60)

			slot, err := allocation.NewSlot(doctorID, doctorName, date, start, end, capacity)
			if err != nil {
				return err
			}
			if err := repo.Add(ctx, slot); err != nil {
				return err
			}
		}

		log.Printf("seeded %s: %s", doctorID, doctorName)
	}

	log.Println("schedules seeded")
	return nil
}
