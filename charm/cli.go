// ABOUTME: Sync operations behind the "sync" commands
// ABOUTME: Link, status, wipe, and manual sync against the charm server using SSH key auth

package charm

import (
	"fmt"
	"io"
	"sort"
)

// Link tests the connection to the charm server and reports the account.
// Charm uses SSH key authentication, so there is no login step.
func Link(w io.Writer, c *Client) error {
	cfg := c.Config()
	fmt.Fprintf(w, "Linking to Charm Cloud (%s)...\n\n", cfg.Host)
	fmt.Fprintln(w, "Charm uses SSH key authentication.")

	if err := c.Sync(); err != nil {
		return fmt.Errorf("link failed: %w", err)
	}

	id, err := c.ID()
	if err != nil {
		fmt.Fprintln(w, "✓ Device linked (ID unavailable)")
	} else {
		fmt.Fprintf(w, "✓ Linked to account: %s\n", id)
	}

	fmt.Fprintf(w, "✓ Auto-sync: %v\n", cfg.AutoSync)
	fmt.Fprintln(w, "\nYour device is now syncing with Charm Cloud!")
	return nil
}

// Status prints the sync configuration and per-collection record counts.
func Status(w io.Writer, s *Store) error {
	cfg := s.client.Config()
	fmt.Fprintln(w, "Charm Sync Status")
	fmt.Fprintln(w, "─────────────────")
	fmt.Fprintf(w, "Server:    %s\n", cfg.Host)
	fmt.Fprintf(w, "Auto-sync: %v\n", cfg.AutoSync)

	id, err := s.client.ID()
	if err != nil {
		fmt.Fprintln(w, "\nStatus: Not connected")
	} else {
		fmt.Fprintln(w, "\nStatus: Connected to Charm Cloud")
		fmt.Fprintf(w, "ID:        %s\n", id)
	}

	counts, err := s.Counts()
	if err != nil {
		return err
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%-14s %d\n", name+":", counts[name])
	}
	return nil
}

// Unlink explains how to detach the device. Charm has no unlink API.
func Unlink(w io.Writer) {
	fmt.Fprintln(w, "To unlink your device from Charm Cloud:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  1. Remove this device's SSH key from your Charm account")
	fmt.Fprintln(w, "  2. Delete local charm data: rm -rf ~/.local/share/charm")
}

// Wipe resets the KV store. Without confirm it only prints a warning.
func Wipe(w io.Writer, c *Client, confirm bool) error {
	if !confirm {
		fmt.Fprintln(w, "WARNING: This will delete ALL local data!")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "To confirm, run:")
		fmt.Fprintln(w, "  pagen-admin sync wipe --confirm")
		return nil
	}

	if err := c.Reset(); err != nil {
		return fmt.Errorf("failed to reset KV store: %w", err)
	}

	fmt.Fprintln(w, "✓ All data wiped")
	fmt.Fprintln(w, "Your Charm account is still linked.")
	return nil
}

// SyncNow performs an immediate sync.
func SyncNow(w io.Writer, c *Client, verbose bool) error {
	if verbose {
		fmt.Fprintln(w, "Syncing with server...")
	}

	if err := c.Sync(); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if verbose {
		fmt.Fprintln(w, "✓ Sync complete")
	} else {
		fmt.Fprintln(w, "✓ Synced")
	}
	return nil
}
