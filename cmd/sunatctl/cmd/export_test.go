package cmd

// Accesos para las pruebas del paquete cmd_test.
type SendOutcome = sendOutcome

var SendFiles = sendFiles
