// Command modelgen regenerates the gorm models for the agentworld postgres
// tables deployment_events, deployment_summaries and world_snapshots from a
// live database migrated with db/migrations.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gen"
	"gorm.io/gorm"
)

// tables created by db/migrations.
var tables = []string{"deployment_events", "deployment_summaries", "world_snapshots"}

func main() {
	var dsn, out string
	flag.StringVar(&dsn, "dsn", os.Getenv("AGENTWORLD_DB_DSN"), "postgres dsn")
	flag.StringVar(&out, "out", "internal/adapter/repo/gorm/model", "output dir for generated models")
	flag.Parse()

	if dsn == "" {
		log.Fatal("missing --dsn or AGENTWORLD_DB_DSN")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}

	g := gen.NewGenerator(gen.Config{
		OutPath:      out,
		ModelPkgPath: "model",
		Mode:         gen.WithoutContext | gen.WithDefaultQuery,
	})
	g.UseDB(db)
	for _, table := range tables {
		g.GenerateModel(table)
	}
	g.Execute()

	fmt.Printf("generated gorm models at %s\n", out)
}
