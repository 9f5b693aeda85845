package model

// Pointer helpers for the sparse optional fields used by events and
// ledger updates (a plain zero must stay distinguishable from "absent").

func StrPtr(s string) *string { return &s }

func IntPtr(i int) *int { return &i }

func FloatPtr(f float64) *float64 { return &f }
