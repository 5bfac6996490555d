package build

import (
	"slices"

	"github.com/mschirtzinger/rsmlwatch/internal/aliases"
)

// ReloadConfig re-reads the alias configuration and recompiles the sheets
// that used an alias whose target changed, appeared or disappeared.
//
// A configuration that cannot be parsed counts as empty. A configuration
// that was deleted empties the table without recompiling anything; sheets
// that relied on it fail on their next edit.
func (c *Context) ReloadConfig() error {
	if c.config == nil {
		return nil
	}

	data, err := c.fs.ReadFile(c.config.path)
	if err != nil {
		c.logger.Printf("Alias configuration %s is gone, aliases disabled", c.config.path)
		c.config.table = aliases.Table{}
		return nil
	}
	next := c.parseConfig(data)

	var changed, files []string
	for name := range aliases.Diff(c.config.table, next) {
		changed = append(changed, name)
		dependants, _ := c.config.dependants.GetByLeft(name)
		files = append(files, dependants...)
	}
	slices.Sort(files)
	files = slices.Compact(files)

	// Dependants are rebuilt against the new table; edges for unchanged
	// aliases stay as they are.
	c.config.table = next

	c.logger.Printf("Reloaded alias configuration: %d alias(es) changed, %d sheet(s) affected", len(changed), len(files))
	c.observer.ConfigReloaded(changed)
	return c.propagate(files...)
}

// readConfig loads the alias table, treating a missing or broken file as
// empty.
func (c *Context) readConfig() aliases.Table {
	data, err := c.fs.ReadFile(c.config.path)
	if err != nil {
		c.logger.Printf("Failed to read alias configuration %s: %v", c.config.path, err)
		return aliases.Table{}
	}
	return c.parseConfig(data)
}

func (c *Context) parseConfig(data []byte) aliases.Table {
	table, err := aliases.Parse(c.config.path, data)
	if err != nil {
		c.logger.Printf("Ignoring alias configuration %s: %v", c.config.path, err)
		return aliases.Table{}
	}
	return table
}
