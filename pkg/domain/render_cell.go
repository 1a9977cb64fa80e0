package domain

// StyleCell marks a styled instruction that holds one table cell of a repeated
// table row.
const StyleCell NodeType = "table_cell"
