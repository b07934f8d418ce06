// cmd/tools/task-catalog/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"onboarding-workers/pkg/registry"
)

const defaultPath = "pkg/registry/catalog.json"

func main() {
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	checkCmd := flag.NewFlagSet("check-payload", flag.ExitOnError)

	listPath := listCmd.String("path", defaultPath, "Path to catalog file")
	validatePath := validateCmd.String("path", defaultPath, "Path to catalog file")

	updatePath := updateCmd.String("path", defaultPath, "Path to catalog file")
	nameUpdate := updateCmd.String("name", "", "Task name to update")
	field := updateCmd.String("field", "", "Field to update (retries, timeout, description, queue)")
	value := updateCmd.String("value", "", "New value for the field")

	checkPath := checkCmd.String("path", defaultPath, "Path to catalog file")
	nameCheck := checkCmd.String("name", "", "Task name")
	payloadFile := checkCmd.String("payload", "", "JSON file holding the task payload")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "list":
		listCmd.Parse(os.Args[2:])
		catalog := mustLoad(*listPath)
		for _, t := range catalog.Tasks {
			fmt.Printf("%-28s %-13s retries=%d timeout=%s\n", t.Name, t.EntityType, t.Retries, t.Timeout)
		}

	case "validate":
		validateCmd.Parse(os.Args[2:])
		catalog := mustLoad(*validatePath)
		if len(catalog.Tasks) == 0 {
			fmt.Println("Catalog validation failed: catalog contains no tasks")
			os.Exit(1)
		}
		if problems := catalog.Check(); len(problems) > 0 {
			fmt.Println("Catalog validation failed:")
			for _, p := range problems {
				fmt.Printf("  - %s\n", p)
			}
			os.Exit(1)
		}
		fmt.Printf("Catalog validation passed. Found %d tasks.\n", len(catalog.Tasks))

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *nameUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: name, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateTask(*updatePath, *nameUpdate, *field, *value); err != nil {
			fmt.Printf("Error updating task: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated task %s, field %s to %s\n", *nameUpdate, *field, *value)

	case "check-payload":
		checkCmd.Parse(os.Args[2:])
		if *nameCheck == "" || *payloadFile == "" {
			fmt.Println("Error: name and payload are required for check-payload.")
			checkCmd.Usage()
			os.Exit(1)
		}
		if err := checkPayload(*checkPath, *nameCheck, *payloadFile); err != nil {
			fmt.Printf("Payload rejected: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Payload accepted.")

	case "help":
		fallthrough
	default:
		help()
	}
}

func mustLoad(path string) *registry.TaskCatalog {
	catalog, err := registry.Load(path)
	if err != nil {
		fmt.Printf("Failed to load catalog: %v\n", err)
		os.Exit(1)
	}
	return catalog
}

func updateTask(path, name, field, value string) error {
	catalog, err := registry.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	task, ok := catalog.Lookup(name)
	if !ok {
		return fmt.Errorf("task %s not found", name)
	}
	switch field {
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil || retries < 0 {
			return fmt.Errorf("invalid retries value: %s", value)
		}
		task.Retries = retries
	case "timeout":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid timeout value: %w", err)
		}
		task.Timeout = value
	case "description":
		task.Description = value
	case "queue":
		task.Queue = value
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	catalog.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	return saveCatalog(catalog, path)
}

func checkPayload(path, name, payloadFile string) error {
	catalog, err := registry.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	payload, err := os.ReadFile(payloadFile)
	if err != nil {
		return err
	}
	res, err := catalog.ValidatePayload(name, payload)
	if err != nil {
		return err
	}
	if !res.Valid {
		return fmt.Errorf("%v", res.Messages())
	}
	return nil
}

func saveCatalog(catalog *registry.TaskCatalog, path string) error {
	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}
	return nil
}

func help() {
	fmt.Print(`
Usage: task-catalog <command> [flags]

Commands:
  list           List the dispatchable tasks
  validate       Check names, entity types, timeouts and input schemas
  update         Update a task's retries, timeout, description or queue
  check-payload  Validate a JSON payload against a task's input schema
  help           Show this help message

Examples:
  task-catalog validate
  task-catalog update -name submit-kyc-remote -field retries -value 5
  task-catalog check-payload -name submit-kyc -payload ./payload.json

Use 'task-catalog <command> -h' for more information about a command.

`)
}
